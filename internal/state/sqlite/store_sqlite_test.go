package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"strategy-lab/internal/state"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openTrade(id, strategy string, entry float64) state.TradeRecord {
	return state.TradeRecord{
		ID:         id,
		SignalID:   "sig-" + id,
		StrategyID: strategy,
		Symbol:     "AMD",
		Direction:  "BULLISH",
		Status:     state.StatusOpen,
		EntryPrice: entry,
		EntryAt:    time.Now(),
		Context:    []byte{0x81},
	}
}

func TestTradeRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.InsertSignal(ctx, state.SignalRecord{
		ID: "sig-t1", StrategyID: "long_call", Symbol: "AMD",
		Direction: "BULLISH", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTrade(ctx, openTrade("t1", "long_call", 100.10)); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := s.Trade(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("trade lookup: ok=%v err=%v", ok, err)
	}
	if rec.Status != state.StatusOpen || rec.EntryPrice != 100.10 {
		t.Fatalf("record: %+v", rec)
	}
	if len(rec.Context) != 1 {
		t.Fatalf("context blob lost: %v", rec.Context)
	}

	if _, ok, err := s.Trade(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing trade: ok=%v err=%v", ok, err)
	}
}

func TestOpenTradesAndClose(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		if err := s.InsertTrade(ctx, openTrade(id, "long_call", 100)); err != nil {
			t.Fatal(err)
		}
	}
	open, err := s.OpenTrades(ctx)
	if err != nil || len(open) != 2 {
		t.Fatalf("open trades: %d err=%v", len(open), err)
	}

	err = s.CloseTrade(ctx, "t1", state.TradeClose{
		ExitPrice: 110, ExitAt: time.Now(), PnL: 9.79, PnLPct: 9.78, Lesson: "good execution",
	})
	if err != nil {
		t.Fatal(err)
	}
	open, err = s.OpenTrades(ctx)
	if err != nil || len(open) != 1 || open[0].ID != "t2" {
		t.Fatalf("after close: %+v err=%v", open, err)
	}

	rec, _, err := s.Trade(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != state.StatusClosed || rec.PnL != 9.79 || rec.Lesson != "good execution" {
		t.Fatalf("closed record: %+v", rec)
	}

	// Closing a settled trade must not rewrite it.
	if err := s.CloseTrade(ctx, "t1", state.TradeClose{ExitPrice: 1}); err != nil {
		t.Fatal(err)
	}
	rec, _, _ = s.Trade(ctx, "t1")
	if rec.ExitPrice != 110 {
		t.Fatalf("double close rewrote the trade: %+v", rec)
	}
}

func TestClosedTotalsAndRecent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i, pnl := range []float64{5, -2, 3} {
		id := string(rune('a' + i))
		if err := s.InsertTrade(ctx, openTrade(id, "long_call", 100)); err != nil {
			t.Fatal(err)
		}
		err := s.CloseTrade(ctx, id, state.TradeClose{
			ExitPrice: 100 + pnl, ExitAt: time.Now().Add(time.Duration(i) * time.Second), PnL: pnl,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	pnl, closed, wins, err := s.ClosedTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pnl != 6 || closed != 3 || wins != 2 {
		t.Fatalf("totals: pnl=%v closed=%d wins=%d", pnl, closed, wins)
	}

	recent, err := s.RecentClosed(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("recent: %d err=%v", len(recent), err)
	}
	if recent[0].ID != "c" {
		t.Fatalf("most recent first, got %s", recent[0].ID)
	}
}

func TestStrategyPerformance(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	setup := []struct {
		id, strategy string
		pnl          float64
	}{
		{"t1", "long_call", 10},
		{"t2", "long_call", -4},
		{"t3", "iron_condor", -1},
	}
	for _, tc := range setup {
		if err := s.InsertTrade(ctx, openTrade(tc.id, tc.strategy, 100)); err != nil {
			t.Fatal(err)
		}
		if err := s.CloseTrade(ctx, tc.id, state.TradeClose{PnL: tc.pnl, ExitAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	perf, err := s.StrategyPerformance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(perf) != 2 {
		t.Fatalf("got %d strategies", len(perf))
	}
	byID := map[string]state.StrategyPerformance{}
	for _, p := range perf {
		byID[p.StrategyID] = p
	}
	lc := byID["long_call"]
	if lc.Trades != 2 || lc.Wins != 1 || lc.TotalPnL != 6 || lc.AvgPnL != 3 {
		t.Fatalf("long_call perf: %+v", lc)
	}
}
