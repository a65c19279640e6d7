// Preflight checker: loads the config, the catalog, and a live market
// snapshot, and optionally exercises broker credentials. Run it before
// leaving the bot unattended.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/broker"
	"strategy-lab/internal/catalog"
	"strategy-lab/internal/config"
	"strategy-lab/internal/data"
	"strategy-lab/internal/features"
	"strategy-lab/internal/judge"
	"strategy-lab/internal/logging"
	"strategy-lab/internal/scanner"
)

const fetchTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	checkBroker := flag.Bool("broker", false, "also verify broker credentials and account access")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()
	fmt.Printf("config ok: symbol=%s poll=%s broker_mode=%s\n",
		cfg.Strategy.Symbol, cfg.Strategy.PollInterval, cfg.Broker.Mode)

	defs, err := catalog.Load(cfg.Strategy.CatalogDir, log)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("catalog ok: %d strategies from %s\n", len(defs), cfg.Strategy.CatalogDir)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	yahoo := data.NewYahooSource(cfg.Data.SectorSymbol, log)
	snap, err := yahoo.Snapshot(ctx, cfg.Strategy.Symbol)
	if err != nil {
		fatal(err)
	}
	if snap.Empty() {
		fatal(fmt.Errorf("no market data for %s", cfg.Strategy.Symbol))
	}
	macro, err := yahoo.Macro(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("data ok: %s price=%.2f closes=%d vix=%.1f market=%s\n",
		snap.Symbol, snap.Price, len(snap.Closes), macro.VIX, macro.Trend)

	set := features.Analyze(snap)
	verdict := judge.Decide(set, macro)
	signals := scanner.Scan(defs, snap)
	fmt.Printf("analysis ok: trend=%s iv_rank=%d verdict=%s signals=%d\n",
		set.Trend, set.IVRank, verdict.Label, len(signals))

	if *checkBroker {
		verifyBroker(ctx, cfg, log)
	}
}

func verifyBroker(ctx context.Context, cfg *config.Config, log *zap.Logger) {
	if cfg.Broker.Mode != "alpaca" {
		fmt.Printf("broker check skipped: mode is %s\n", cfg.Broker.Mode)
		return
	}
	client, err := broker.NewAlpacaClient(cfg.Broker.BaseURL, cfg.Broker.Timeout, log)
	if err != nil {
		fatal(err)
	}
	account, err := client.Account(ctx)
	if err != nil {
		fatal(err)
	}
	positions, err := client.OpenPositions(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("broker ok: equity=%.2f buying_power=%.2f open_positions=%d\n",
		account.Equity, account.BuyingPower, len(positions))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
