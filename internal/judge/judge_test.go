package judge

import (
	"strings"
	"testing"

	"strategy-lab/internal/features"
	"strategy-lab/internal/market"
)

func calmMacro() market.Macro {
	return market.Macro{VIX: 18, Trend: market.TrendBullish}
}

func TestPerfectLongSetup(t *testing.T) {
	set := features.Set{
		Trend:       features.TrendUp,
		HTFTrend:    features.TrendUp,
		KeyLevel:    features.LevelSupport,
		Divergence:  features.DivergenceBull,
		SectorTrend: market.TrendNeutral,
		Sentiment:   market.Sentiment{Score: 70, Direction: market.TrendBullish},
		Price:       150,
		SMA200:      140,
	}
	v := Decide(set, calmMacro())
	if v.Label != LabelStrongBuy {
		t.Fatalf("label: got %s, want STRONG BUY (score %d)", v.Label, v.Score)
	}
	if !strings.Contains(v.Text, "STRONG BUY") || !strings.Contains(v.Text, "BULLISH DIVERGENCE") {
		t.Fatalf("text missing evidence: %s", v.Text)
	}
	if v.Blocked {
		t.Fatal("strong buy must not be blocked")
	}
}

func TestStrongSellSetup(t *testing.T) {
	set := features.Set{
		Trend:       features.TrendDown,
		HTFTrend:    features.TrendDown,
		KeyLevel:    features.LevelResistance,
		Divergence:  features.DivergenceBear,
		SectorTrend: market.TrendNeutral,
		Sentiment:   market.Sentiment{Direction: market.TrendNeutral},
	}
	v := Decide(set, calmMacro())
	if v.Label != LabelStrongSell {
		t.Fatalf("label: got %s (score %d)", v.Label, v.Score)
	}
	if !strings.Contains(v.Text, "RESISTANCE") {
		t.Fatalf("text missing resistance note: %s", v.Text)
	}
}

func TestVIXPanicVeto(t *testing.T) {
	set := features.Set{Trend: features.TrendUp, HTFTrend: features.TrendUp}
	v := Decide(set, market.Macro{VIX: 35, Trend: market.TrendBullish})
	if !v.Blocked || v.Label != LabelBlocked {
		t.Fatalf("expected blocked verdict, got %+v", v)
	}
	if !strings.Contains(v.Text, "panic") {
		t.Fatalf("text should name the panic: %s", v.Text)
	}
}

func TestVetoOrder(t *testing.T) {
	// VIX panic is checked before expensive IV.
	set := features.Set{IV: 0.95}
	v := Decide(set, market.Macro{VIX: 40})
	if !strings.Contains(v.Text, "panic") {
		t.Fatalf("first veto should win: %s", v.Text)
	}
}

func TestExpensiveIVVeto(t *testing.T) {
	set := features.Set{Trend: features.TrendUp, HTFTrend: features.TrendUp, IV: 0.85}
	v := Decide(set, calmMacro())
	if !v.Blocked || !strings.Contains(v.Text, "expensive") {
		t.Fatalf("expected IV veto, got %+v", v)
	}
}

func TestExtremeFearVeto(t *testing.T) {
	set := features.Set{
		Sentiment: market.Sentiment{Score: 85, Direction: market.TrendBearish},
	}
	v := Decide(set, calmMacro())
	if !v.Blocked {
		t.Fatalf("expected fear veto, got %+v", v)
	}
}

func TestMarketSectorCaution(t *testing.T) {
	set := features.Set{SectorTrend: market.TrendBearish}
	v := Decide(set, market.Macro{VIX: 20, Trend: market.TrendBearish})
	if v.Label != LabelCaution {
		t.Fatalf("label: got %s", v.Label)
	}
	if v.Blocked {
		t.Fatal("caution is advisory, not a block")
	}
}

func TestBelowSMA200ClampOrdering(t *testing.T) {
	// Trend and support build +3, the clamp zeroes it, then the divergence
	// is still allowed to rebuild the score.
	set := features.Set{
		Trend:       features.TrendUp,
		HTFTrend:    features.TrendUp,
		KeyLevel:    features.LevelSupport,
		Divergence:  features.DivergenceBull,
		SectorTrend: market.TrendNeutral,
		Sentiment:   market.Sentiment{Direction: market.TrendNeutral},
		Price:       90,
		SMA200:      100,
	}
	v := Decide(set, calmMacro())
	if v.Score != 2 {
		t.Fatalf("score: got %d, want 2 (clamp then divergence)", v.Score)
	}
	if v.Label != LabelBuy {
		t.Fatalf("label: got %s, want BUY", v.Label)
	}
}

func TestNeutralWhenNoEvidence(t *testing.T) {
	set := features.Set{
		Trend:     features.TrendUnknown,
		HTFTrend:  features.TrendUnknown,
		KeyLevel:  features.LevelMiddle,
		Sentiment: market.Sentiment{Direction: market.TrendNeutral},
	}
	v := Decide(set, calmMacro())
	if v.Label != LabelNeutral || v.Score != 0 {
		t.Fatalf("got %s score %d", v.Label, v.Score)
	}
}

func TestConflictedTimeframesScoreNothing(t *testing.T) {
	set := features.Set{
		Trend:     features.TrendUp,
		HTFTrend:  features.TrendDown,
		KeyLevel:  features.LevelMiddle,
		Sentiment: market.Sentiment{Direction: market.TrendNeutral},
	}
	v := Decide(set, calmMacro())
	if v.Score != 0 {
		t.Fatalf("conflict must be a note only, got score %d", v.Score)
	}
}
