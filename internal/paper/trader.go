// Package paper simulates option trades with realistic friction and keeps
// the journal honest: every fill pays slippage, every close records what
// the market taught us.
package paper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"strategy-lab/internal/config"
	"strategy-lab/internal/market"
	"strategy-lab/internal/scanner"
	"strategy-lab/internal/state"
)

const recentLessons = 5

// EntryContext captures the market conditions at fill time. It is encoded
// into the trade row and decoded again when the trade settles.
type EntryContext struct {
	Symbol         string  `msgpack:"symbol"`
	Price          float64 `msgpack:"price"`
	IV             float64 `msgpack:"iv"`
	VIX            float64 `msgpack:"vix"`
	MarketTrend    string  `msgpack:"market_trend"`
	Verdict        string  `msgpack:"verdict"`
	SentimentScore int     `msgpack:"sentiment_score"`
}

type Trader struct {
	ledger state.Ledger
	log    *zap.Logger

	slippage  float64
	targetPct float64
	stopPct   float64

	now func() time.Time
}

func New(ledger state.Ledger, cfg config.TraderConfig, log *zap.Logger) *Trader {
	return &Trader{
		ledger:    ledger,
		log:       log,
		slippage:  cfg.Slippage,
		targetPct: cfg.TargetPct,
		stopPct:   cfg.StopPct,
		now:       time.Now,
	}
}

// fill applies slippage against the trader: buys fill above the quote,
// sells below it.
func (t *Trader) fill(price float64, buying bool) float64 {
	if buying {
		return price * (1 + t.slippage)
	}
	return price * (1 - t.slippage)
}

// OpenTrade records the signal audit row and opens a simulated position at
// a friction-adjusted entry. Returns the new trade id.
func (t *Trader) OpenTrade(ctx context.Context, sig scanner.Signal, price float64, ec EntryContext) (string, error) {
	features, err := msgpack.Marshal(sig.Features)
	if err != nil {
		t.log.Warn("feature encode failed", zap.Error(err))
	}
	entryCtx, err := msgpack.Marshal(ec)
	if err != nil {
		t.log.Warn("entry context encode failed", zap.Error(err))
	}

	entry := price
	switch sig.Direction {
	case market.TrendBullish:
		entry = t.fill(price, true)
	case market.TrendBearish:
		entry = t.fill(price, false)
	}

	now := t.now()
	signalID := ulid.Make().String()
	tradeID := ulid.Make().String()

	if err := t.ledger.InsertSignal(ctx, state.SignalRecord{
		ID:         signalID,
		StrategyID: sig.StrategyID,
		Symbol:     ec.Symbol,
		Direction:  sig.Direction,
		Features:   features,
		CreatedAt:  now,
	}); err != nil {
		return "", fmt.Errorf("insert signal: %w", err)
	}
	if err := t.ledger.InsertTrade(ctx, state.TradeRecord{
		ID:         tradeID,
		SignalID:   signalID,
		StrategyID: sig.StrategyID,
		Symbol:     ec.Symbol,
		Direction:  sig.Direction,
		Status:     state.StatusOpen,
		EntryPrice: entry,
		EntryAt:    now,
		Context:    entryCtx,
	}); err != nil {
		return "", fmt.Errorf("insert trade: %w", err)
	}

	t.log.Info("paper trade opened",
		zap.String("trade", tradeID),
		zap.String("strategy", sig.StrategyID),
		zap.String("direction", sig.Direction),
		zap.Float64("quote", price),
		zap.Float64("entry", entry))
	return tradeID, nil
}

// CloseTrade settles an open trade at a friction-adjusted exit. Unknown or
// already-closed ids are a no-op with ok=false.
func (t *Trader) CloseTrade(ctx context.Context, id string, price float64) (state.TradeRecord, bool, error) {
	rec, ok, err := t.ledger.Trade(ctx, id)
	if err != nil || !ok {
		return state.TradeRecord{}, false, err
	}
	if rec.Status != state.StatusOpen {
		return state.TradeRecord{}, false, nil
	}

	exit := price
	var pnl float64
	switch rec.Direction {
	case market.TrendBullish:
		exit = t.fill(price, false)
		pnl = exit - rec.EntryPrice
	case market.TrendBearish:
		exit = t.fill(price, true)
		pnl = rec.EntryPrice - exit
	default:
		pnl = exit - rec.EntryPrice
	}
	var pnlPct float64
	if rec.EntryPrice != 0 {
		pnlPct = pnl / rec.EntryPrice * 100
	}

	var ec EntryContext
	if len(rec.Context) > 0 {
		if err := msgpack.Unmarshal(rec.Context, &ec); err != nil {
			t.log.Warn("entry context decode failed", zap.String("trade", id), zap.Error(err))
		}
	}
	close := state.TradeClose{
		ExitPrice: exit,
		ExitAt:    t.now(),
		PnL:       pnl,
		PnLPct:    pnlPct,
		Lesson:    lesson(pnlPct, ec),
	}
	if err := t.ledger.CloseTrade(ctx, id, close); err != nil {
		return state.TradeRecord{}, false, fmt.Errorf("close trade: %w", err)
	}

	rec.Status = state.StatusClosed
	rec.ExitPrice = close.ExitPrice
	rec.ExitAt = close.ExitAt
	rec.PnL = close.PnL
	rec.PnLPct = close.PnLPct
	rec.Lesson = close.Lesson

	t.log.Info("paper trade closed",
		zap.String("trade", id),
		zap.Float64("pnl", pnl),
		zap.Float64("pnl_pct", pnlPct),
		zap.String("lesson", rec.Lesson))
	return rec, true, nil
}

// UpdatePositions sweeps open trades against the current price and closes
// any that hit the profit target or the stop. Returns the trades it closed.
func (t *Trader) UpdatePositions(ctx context.Context, price float64) ([]state.TradeRecord, error) {
	open, err := t.ledger.OpenTrades(ctx)
	if err != nil {
		return nil, err
	}
	var closed []state.TradeRecord
	for _, rec := range open {
		if rec.EntryPrice == 0 {
			continue
		}
		movePct := (price - rec.EntryPrice) / rec.EntryPrice * 100
		if rec.Direction == market.TrendBearish {
			movePct = -movePct
		}
		if movePct < t.targetPct && movePct > -t.stopPct {
			continue
		}
		settled, ok, err := t.CloseTrade(ctx, rec.ID, price)
		if err != nil {
			t.log.Warn("position close failed", zap.String("trade", rec.ID), zap.Error(err))
			continue
		}
		if ok {
			closed = append(closed, settled)
		}
	}
	return closed, nil
}

// lesson explains a settled trade in priority order: praise wins, then the
// most specific failure mode.
func lesson(pnlPct float64, ec EntryContext) string {
	if pnlPct > 0 {
		return "Market matched the thesis. Clean execution."
	}
	if ec.IV > 0.60 {
		return "IV crush: bought expensive options into high volatility."
	}
	if ec.VIX > 30 || strings.Contains(strings.ToLower(ec.Verdict), "panic") {
		return "Fought the fear: the broad market was in panic mode."
	}
	return "Direction was defensible, entry timing was not."
}

// Stats summarizes the whole paper account.
type Stats struct {
	TotalPnL    float64
	WinRate     float64
	TotalTrades int
	Open        []state.TradeRecord
	Recent      []state.TradeRecord
}

func (t *Trader) PortfolioStats(ctx context.Context) (Stats, error) {
	pnl, closed, wins, err := t.ledger.ClosedTotals(ctx)
	if err != nil {
		return Stats{}, err
	}
	open, err := t.ledger.OpenTrades(ctx)
	if err != nil {
		return Stats{}, err
	}
	recent, err := t.ledger.RecentClosed(ctx, recentLessons)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalPnL:    pnl,
		TotalTrades: closed,
		Open:        open,
		Recent:      recent,
	}
	if closed > 0 {
		stats.WinRate = float64(wins) / float64(closed) * 100
	}
	return stats, nil
}
