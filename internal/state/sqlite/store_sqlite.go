// Package sqlite is the file-backed Ledger implementation. One database
// holds the signals audit log and the trade journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"strategy-lab/internal/state"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	direction   TEXT NOT NULL,
	features    BLOB,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	id          TEXT PRIMARY KEY,
	signal_id   TEXT NOT NULL,
	strategy_id TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	direction   TEXT NOT NULL,
	status      TEXT NOT NULL,
	entry_price REAL NOT NULL,
	entry_at    INTEGER NOT NULL,
	context     BLOB,
	exit_price  REAL NOT NULL DEFAULT 0,
	exit_at     INTEGER NOT NULL DEFAULT 0,
	pnl         REAL NOT NULL DEFAULT 0,
	pnl_pct     REAL NOT NULL DEFAULT 0,
	lesson      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
`)
	return err
}

func (s *Store) InsertSignal(ctx context.Context, rec state.SignalRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, strategy_id, symbol, direction, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StrategyID, rec.Symbol, rec.Direction, rec.Features, rec.CreatedAt.UnixMilli())
	return err
}

func (s *Store) InsertTrade(ctx context.Context, rec state.TradeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (id, signal_id, strategy_id, symbol, direction, status, entry_price, entry_at, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SignalID, rec.StrategyID, rec.Symbol, rec.Direction, rec.Status,
		rec.EntryPrice, rec.EntryAt.UnixMilli(), rec.Context)
	return err
}

const tradeColumns = `id, signal_id, strategy_id, symbol, direction, status,
	entry_price, entry_at, context, exit_price, exit_at, pnl, pnl_pct, lesson`

func scanTrade(row interface{ Scan(...any) error }) (state.TradeRecord, error) {
	var rec state.TradeRecord
	var entryAt, exitAt int64
	err := row.Scan(&rec.ID, &rec.SignalID, &rec.StrategyID, &rec.Symbol, &rec.Direction,
		&rec.Status, &rec.EntryPrice, &entryAt, &rec.Context,
		&rec.ExitPrice, &exitAt, &rec.PnL, &rec.PnLPct, &rec.Lesson)
	if err != nil {
		return rec, err
	}
	rec.EntryAt = time.UnixMilli(entryAt)
	if exitAt != 0 {
		rec.ExitAt = time.UnixMilli(exitAt)
	}
	return rec, nil
}

func (s *Store) Trade(ctx context.Context, id string) (state.TradeRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.TradeRecord{}, false, nil
		}
		return state.TradeRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) OpenTrades(ctx context.Context) ([]state.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status = ? ORDER BY entry_at`, state.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []state.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CloseTrade(ctx context.Context, id string, close state.TradeClose) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, exit_price = ?, exit_at = ?, pnl = ?, pnl_pct = ?, lesson = ?
		 WHERE id = ? AND status = ?`,
		state.StatusClosed, close.ExitPrice, close.ExitAt.UnixMilli(),
		close.PnL, close.PnLPct, close.Lesson, id, state.StatusOpen)
	return err
}

func (s *Store) ClosedTotals(ctx context.Context) (float64, int, int, error) {
	var pnl float64
	var closed, wins int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pnl), 0), COUNT(*), COALESCE(SUM(pnl > 0), 0)
		 FROM trades WHERE status = ?`, state.StatusClosed).Scan(&pnl, &closed, &wins)
	return pnl, closed, wins, err
}

func (s *Store) RecentClosed(ctx context.Context, limit int) ([]state.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE status = ? ORDER BY exit_at DESC LIMIT ?`,
		state.StatusClosed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []state.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) StrategyPerformance(ctx context.Context) ([]state.StrategyPerformance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy_id, COUNT(*), COALESCE(SUM(pnl > 0), 0), COALESCE(SUM(pnl), 0), COALESCE(AVG(pnl), 0)
		 FROM trades WHERE status = ? GROUP BY strategy_id ORDER BY strategy_id`, state.StatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []state.StrategyPerformance
	for rows.Next() {
		var p state.StrategyPerformance
		if err := rows.Scan(&p.StrategyID, &p.Trades, &p.Wins, &p.TotalPnL, &p.AvgPnL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
