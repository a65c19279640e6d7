package scanner

import (
	"testing"

	"strategy-lab/internal/catalog"
	"strategy-lab/internal/features"
	"strategy-lab/internal/market"
)

func bullishDef(id string, trend string, minIV, maxIV int) catalog.Definition {
	return catalog.Definition{
		ID:        id,
		Name:      id,
		Type:      "single_leg",
		Direction: catalog.DirectionBullish,
		Legs:      []catalog.Leg{{Action: "BUY", Type: "CALL", StrikeLogic: "ATM", Quantity: 1}},
		Entry:     catalog.EntryRules{Trend: trend, MinIVRank: minIV, MaxIVRank: maxIV},
	}
}

func TestIsApplicableTrendRule(t *testing.T) {
	def := bullishDef("call", "UP", 0, 100)
	set := features.Set{Trend: features.TrendUp, HTFTrend: features.TrendUnknown, IVRank: 50}
	if !IsApplicable(def, set) {
		t.Fatal("matching trend should pass")
	}
	set.Trend = features.TrendSideways
	if IsApplicable(def, set) {
		t.Fatal("trend mismatch should fail closed")
	}
	set.Trend = features.TrendUnknown
	if IsApplicable(def, set) {
		t.Fatal("unknown trend cannot satisfy an exact rule")
	}
}

func TestIsApplicableIVBand(t *testing.T) {
	def := bullishDef("call", "", 20, 60)
	set := features.Set{Trend: features.TrendUp, HTFTrend: features.TrendUnknown}
	for _, tc := range []struct {
		rank int
		want bool
	}{{19, false}, {20, true}, {60, true}, {61, false}} {
		set.IVRank = tc.rank
		if got := IsApplicable(def, set); got != tc.want {
			t.Fatalf("rank %d: got %v, want %v", tc.rank, got, tc.want)
		}
	}
}

func TestIsApplicableHTFVeto(t *testing.T) {
	def := bullishDef("call", "", 0, 100)
	set := features.Set{IVRank: 50, HTFTrend: features.TrendDown}
	if IsApplicable(def, set) {
		t.Fatal("bullish strategy vetoed when HTF points down")
	}
	set.HTFTrend = features.TrendUnknown
	if !IsApplicable(def, set) {
		t.Fatal("unknown HTF does not constrain")
	}

	bear := def
	bear.Direction = catalog.DirectionBearish
	set.HTFTrend = features.TrendUp
	if IsApplicable(bear, set) {
		t.Fatal("bearish strategy vetoed when HTF points up")
	}
	neutral := def
	neutral.Direction = catalog.DirectionNeutral
	if !IsApplicable(neutral, set) {
		t.Fatal("neutral strategies ignore the HTF veto")
	}
}

func TestScanPreservesCatalogOrder(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	htf := make([]float64, 60)
	for i := range htf {
		htf[i] = 100 + float64(i)
	}
	snap := market.Snapshot{
		Symbol:    "AMD",
		Closes:    closes,
		HTFCloses: htf,
		IV:        0.40,
		IVHistory: []float64{0.20, 0.60},
	}
	defs := []catalog.Definition{
		bullishDef("first", "UP", 0, 100),
		bullishDef("too_low_iv", "UP", 90, 100),
		bullishDef("second", "", 0, 100),
	}
	signals := Scan(defs, snap)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].StrategyID != "first" || signals[1].StrategyID != "second" {
		t.Fatalf("order not preserved: %s, %s", signals[0].StrategyID, signals[1].StrategyID)
	}
	if signals[0].Features.Trend != features.TrendUp {
		t.Fatalf("signal must carry the triggering features, got %s", signals[0].Features.Trend)
	}
	if len(signals[0].Legs) != 1 {
		t.Fatal("signal must carry resolved legs")
	}
}
