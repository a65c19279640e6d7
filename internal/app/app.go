// Package app wires configuration into a running engine: data sources,
// ledger, risk gate, broker, alerts, metrics, history.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/alerts"
	"strategy-lab/internal/broker"
	"strategy-lab/internal/catalog"
	"strategy-lab/internal/config"
	"strategy-lab/internal/data"
	"strategy-lab/internal/engine"
	"strategy-lab/internal/halt"
	"strategy-lab/internal/history"
	"strategy-lab/internal/metrics"
	"strategy-lab/internal/paper"
	"strategy-lab/internal/risk"
	"strategy-lab/internal/state/sqlite"
)

const metricsShutdownTimeout = 3 * time.Second

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *sqlite.Store
	killer *halt.Switch
	engine *engine.Engine

	stream  *data.StreamFeed // nil when polling Yahoo directly
	archive *history.Writer  // nil when history is disabled
	prom    *metrics.Prometheus
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if dir := filepath.Dir(cfg.State.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	killer := halt.NewFileSwitch(cfg.Halt.Dir)
	trader := paper.New(store, cfg.Trader, log)
	riskMgr := risk.New(cfg.Risk, killer, log)

	yahoo := data.NewYahooSource(cfg.Data.SectorSymbol, log)
	var source data.Source = yahoo
	var stream *data.StreamFeed
	if cfg.Data.StreamURL != "" {
		stream = data.NewStreamFeed(cfg.Data.StreamURL, cfg.Data.ReconnectDelay, log)
		source = stream
	}
	var sentiment data.SentimentSource
	if cfg.Data.Sentiment.Enabled {
		sentiment = data.NewRedditSource(cfg.Data.Sentiment, log)
	}

	var brk broker.Broker
	switch cfg.Broker.Mode {
	case "dry_run":
		brk = broker.NewDryRun(log)
	case "alpaca":
		brk, err = broker.NewAlpacaClient(cfg.Broker.BaseURL, cfg.Broker.Timeout, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	mtr := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		mtr = prom.Metrics
	}

	archive, err := history.New(cfg.History, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	defs, err := catalog.Load(cfg.Strategy.CatalogDir, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if len(defs) == 0 {
		log.Warn("strategy catalog is empty, nothing will ever match",
			zap.String("dir", cfg.Strategy.CatalogDir))
	}

	eng := engine.New(
		engine.Config{
			Symbol:        cfg.Strategy.Symbol,
			PollInterval:  cfg.Strategy.PollInterval,
			AutoTrade:     cfg.Strategy.AutoTrade,
			MinConfidence: cfg.Strategy.MinConfidence,
		},
		defs,
		source, yahoo, sentiment,
		trader, riskMgr, killer, brk,
		alerts.NewDiscord(cfg.Alerts, log),
		mtr, archive, log,
	)

	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		killer:  killer,
		engine:  eng,
		stream:  stream,
		archive: archive,
		prom:    prom,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer func() { _ = a.archive.Close() }()

	if a.killer.Halted() {
		a.log.Warn("starting halted", zap.String("reason", a.killer.Reason()))
	}

	if a.stream != nil {
		go func() {
			if err := a.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("price stream stopped", zap.Error(err))
			}
		}()
	}
	a.archive.Start(ctx)

	if a.prom != nil {
		srv := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: a.prom.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.log.Info("metrics listening", zap.String("addr", a.cfg.Metrics.Listen))
	}

	a.log.Info("engine starting",
		zap.String("symbol", a.cfg.Strategy.Symbol),
		zap.Duration("poll_interval", a.cfg.Strategy.PollInterval),
		zap.Bool("auto_trade", a.cfg.Strategy.AutoTrade),
		zap.String("broker_mode", a.cfg.Broker.Mode))
	return a.engine.Run(ctx)
}
