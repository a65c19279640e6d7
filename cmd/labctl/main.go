// labctl is the operator's console: halt and resume trading, inspect the
// portfolio, and review the strategy scoreboard without touching the
// running bot.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strategy-lab/internal/catalog"
	"strategy-lab/internal/config"
	"strategy-lab/internal/halt"
	"strategy-lab/internal/logging"
	"strategy-lab/internal/paper"
	"strategy-lab/internal/state/sqlite"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "labctl",
		Short:         "Operate a running strategy lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	root.AddCommand(haltCmd(), resumeCmd(), statusCmd(), strategiesCmd(), statsCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	return config.Load(configPath)
}

func haltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "halt [reason]",
		Short: "Stop all trading until resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reason := "halted by operator"
			if len(args) > 0 {
				reason = strings.Join(args, " ")
			}
			if err := halt.NewFileSwitch(cfg.Halt.Dir).TriggerManual(reason); err != nil {
				return err
			}
			fmt.Printf("trading halted: %s\n", reason)
			return nil
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear halt markers and resume trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cleared, err := halt.NewFileSwitch(cfg.Halt.Dir).Resume()
			if err != nil {
				return err
			}
			if len(cleared) == 0 {
				fmt.Println("trading was not halted")
				return nil
			}
			fmt.Printf("cleared: %s\n", strings.Join(cleared, ", "))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show halt state and the paper portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			killer := halt.NewFileSwitch(cfg.Halt.Dir)
			if killer.Halted() {
				fmt.Printf("halted: %s\n", killer.Reason())
			} else {
				fmt.Println("trading: active")
			}

			trader, closeStore, err := openTrader(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			stats, err := trader.PortfolioStats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("closed trades: %d  win rate: %.1f%%  total pnl: %.2f\n",
				stats.TotalTrades, stats.WinRate, stats.TotalPnL)
			fmt.Printf("open positions: %d\n", len(stats.Open))
			for _, trade := range stats.Open {
				fmt.Printf("  %s  %s %s  entry %.2f  opened %s\n",
					trade.ID, trade.StrategyID, trade.Direction, trade.EntryPrice,
					trade.EntryAt.Format("2006-01-02 15:04"))
			}
			for _, trade := range stats.Recent {
				fmt.Printf("  lesson: %s\n", trade.Lesson)
			}
			return nil
		},
	}
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the loaded strategy catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defs, err := catalog.Load(cfg.Strategy.CatalogDir, logging.New(cfg.Log))
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				fmt.Printf("no strategies in %s\n", cfg.Strategy.CatalogDir)
				return nil
			}
			for _, def := range defs {
				fmt.Printf("%-20s %-10s %-8s legs=%d iv_rank=[%d,%d]\n",
					def.ID, def.Direction, def.Type, len(def.Legs),
					def.Entry.MinIVRank, def.Entry.MaxIVRank)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the per-strategy scoreboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			trader, closeStore, err := openTrader(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			scores, err := trader.StrategyScores(context.Background())
			if err != nil {
				return err
			}
			if len(scores) == 0 {
				fmt.Println("no closed trades yet")
				return nil
			}
			fmt.Printf("%-20s %7s %9s %9s %10s %s\n",
				"STRATEGY", "TRADES", "WIN RATE", "AVG PNL", "TOTAL PNL", "STATUS")
			for _, s := range scores {
				fmt.Printf("%-20s %7d %8.1f%% %9.2f %10.2f %s\n",
					s.StrategyID, s.Trades, s.WinRate, s.AvgPnL, s.TotalPnL, s.Status)
			}
			return nil
		},
	}
}

func openTrader(cfg *config.Config) (*paper.Trader, func(), error) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	trader := paper.New(store, cfg.Trader, zap.NewNop())
	return trader, func() { _ = store.Close() }, nil
}
