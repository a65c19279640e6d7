// Package history archives one row per decision cycle to Postgres for
// offline review. Writes are queued and asynchronous; a full queue drops
// rows rather than stalling the engine.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"strategy-lab/internal/config"
)

const writeTimeout = 3 * time.Second

// Decision is the archived outcome of one cycle.
type Decision struct {
	Time        time.Time
	Symbol      string
	Price       float64
	IV          float64
	VIX         float64
	MarketTrend string
	Verdict     string
	StrategyID  string
	Direction   string
	Confidence  int
	TradeID     string
}

type Writer struct {
	db    *sql.DB
	log   *zap.Logger
	table string

	decisions chan Decision
	started   atomic.Bool
	dropped   atomic.Uint64
}

// New returns (nil, nil) when history archiving is disabled; a nil *Writer
// is safe to use everywhere.
func New(cfg config.HistoryConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	w := &Writer{
		db:        db,
		log:       log,
		table:     cfg.Table,
		decisions: make(chan Decision, cfg.QueueSize),
	}
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Enqueue never blocks; rows beyond the queue capacity are dropped and
// counted.
func (w *Writer) Enqueue(d Decision) {
	if w == nil {
		return
	}
	select {
	case w.decisions <- d:
	default:
		if w.dropped.Add(1) == 1 && w.log != nil {
			w.log.Warn("decision history queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-w.decisions:
			w.write(ctx, d)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		iv DOUBLE PRECISION NOT NULL,
		vix DOUBLE PRECISION NOT NULL,
		market_trend TEXT NOT NULL,
		verdict TEXT NOT NULL,
		strategy_id TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL DEFAULT '',
		confidence INTEGER NOT NULL DEFAULT 0,
		trade_id TEXT NOT NULL DEFAULT ''
	)`, w.table))
	return err
}

func (w *Writer) write(ctx context.Context, d Decision) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, price, iv, vix, market_trend, verdict, strategy_id, direction, confidence, trade_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, w.table)
	if _, err := w.db.ExecContext(ctx, query,
		d.Time, d.Symbol, d.Price, d.IV, d.VIX, d.MarketTrend,
		d.Verdict, d.StrategyID, d.Direction, d.Confidence, d.TradeID,
	); err != nil && w.log != nil {
		w.log.Warn("decision history insert failed", zap.Error(err))
	}
}
