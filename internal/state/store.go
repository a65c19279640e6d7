// Package state defines the persistent trade ledger the rest of the engine
// writes through. Implementations live in subpackages.
package state

import (
	"context"
	"time"
)

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// SignalRecord is the audit row written for every signal that led to a
// paper trade. Features holds the msgpack-encoded feature set that
// triggered the match.
type SignalRecord struct {
	ID         string
	StrategyID string
	Symbol     string
	Direction  string
	Features   []byte
	CreatedAt  time.Time
}

// TradeRecord is one simulated position. Context holds the msgpack-encoded
// market conditions at entry, used later to explain the outcome.
type TradeRecord struct {
	ID         string
	SignalID   string
	StrategyID string
	Symbol     string
	Direction  string
	Status     string
	EntryPrice float64
	EntryAt    time.Time
	Context    []byte

	ExitPrice float64
	ExitAt    time.Time
	PnL       float64
	PnLPct    float64
	Lesson    string
}

// TradeClose carries the exit-side fields applied when a trade settles.
type TradeClose struct {
	ExitPrice float64
	ExitAt    time.Time
	PnL       float64
	PnLPct    float64
	Lesson    string
}

// StrategyPerformance aggregates closed trades per strategy.
type StrategyPerformance struct {
	StrategyID string
	Trades     int
	Wins       int
	TotalPnL   float64
	AvgPnL     float64
}

type Ledger interface {
	InsertSignal(ctx context.Context, rec SignalRecord) error
	InsertTrade(ctx context.Context, rec TradeRecord) error
	Trade(ctx context.Context, id string) (TradeRecord, bool, error)
	OpenTrades(ctx context.Context) ([]TradeRecord, error)
	// CloseTrade settles an OPEN trade. Closing an already-closed or
	// unknown trade is a no-op.
	CloseTrade(ctx context.Context, id string, close TradeClose) error
	// ClosedTotals returns realized PnL, the closed-trade count and the
	// number of winners.
	ClosedTotals(ctx context.Context) (float64, int, int, error)
	RecentClosed(ctx context.Context, limit int) ([]TradeRecord, error)
	StrategyPerformance(ctx context.Context) ([]StrategyPerformance, error)
	Close() error
}
