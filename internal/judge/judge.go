// Package judge turns a feature set and macro backdrop into a plain-language
// trading verdict. Safety vetoes run first and short-circuit; only then does
// the additive evidence score decide the label.
package judge

import (
	"fmt"
	"strings"

	"strategy-lab/internal/features"
	"strategy-lab/internal/market"
)

const (
	vixPanicLevel    = 30.0
	ivCeiling        = 0.80
	bearSentimentMin = 80
	hypeFloor        = 50

	strongThreshold = 3
	leanThreshold   = 1
)

const (
	LabelStrongBuy  = "STRONG BUY"
	LabelBuy        = "BUY"
	LabelNeutral    = "NEUTRAL"
	LabelSell       = "SELL"
	LabelStrongSell = "STRONG SELL"
	LabelBlocked    = "BLOCKED"
	LabelCaution    = "CAUTION"
)

// Verdict is the arbiter's decision. Text is the full human-readable line;
// Blocked means no trade may be considered this cycle.
type Verdict struct {
	Label   string
	Text    string
	Score   int
	Blocked bool
}

func render(label string, notes []string) string {
	return fmt.Sprintf("VERDICT: %s | %s", label, strings.Join(notes, " "))
}

func blocked(note string) Verdict {
	return Verdict{
		Label:   LabelBlocked,
		Text:    render(LabelBlocked, []string{note}),
		Blocked: true,
	}
}

// Decide evaluates the vetoes in strict order, then scores the remaining
// evidence. The returned text carries every note in evaluation order.
func Decide(set features.Set, macro market.Macro) Verdict {
	if macro.VIX > vixPanicLevel {
		return blocked("The market is in full panic mode. Safer to sit this one out.")
	}
	if macro.Trend == market.TrendBearish && set.SectorTrend == market.TrendBearish {
		return Verdict{
			Label: LabelCaution,
			Text:  render(LabelCaution, []string{"Both the market and the sector are falling. Not the time for standard plays."}),
		}
	}
	if set.IV > ivCeiling {
		return blocked("Options are way too expensive right now. Buying here risks an IV crush.")
	}
	if set.Sentiment.Direction == market.TrendBearish && set.Sentiment.Score > bearSentimentMin {
		return blocked("The crowd is in extreme fear. Stepping aside until it settles.")
	}

	var notes []string
	score := 0

	switch {
	case set.Trend == features.TrendUp && set.HTFTrend == features.TrendUp:
		notes = append(notes, "Market is in a STRONG UPTREND on both timeframes.")
		score += 2
	case set.Trend == features.TrendDown && set.HTFTrend == features.TrendDown:
		notes = append(notes, "Market is in a STRONG DOWNTREND on both timeframes.")
		score -= 2
	case set.Trend != set.HTFTrend:
		notes = append(notes, "Timeframes disagree on direction. Lower conviction.")
	}

	switch set.KeyLevel {
	case features.LevelSupport:
		notes = append(notes, "Price is sitting on SUPPORT. Bounce territory.")
		score++
	case features.LevelResistance:
		notes = append(notes, "Price is pressing into RESISTANCE. Rejection territory.")
		score--
	}

	if set.SMA200 > 0 && set.Price < set.SMA200 {
		notes = append(notes, "Price is below the 200 SMA. Larger downtrend intact, quick trades only.")
		if score > 0 {
			score = 0
		}
	}

	switch set.Divergence {
	case features.DivergenceBull:
		notes = append(notes, "BULLISH DIVERGENCE detected. Momentum is turning up under the price.")
		score += 2
	case features.DivergenceBear:
		notes = append(notes, "BEARISH DIVERGENCE detected. Momentum is fading under the price.")
		score -= 2
	}

	if set.Sector == features.AgainstSector {
		notes = append(notes, "Stock is fighting its sector. Lower odds.")
	}

	if set.Sentiment.Score > hypeFloor {
		switch set.Sentiment.Direction {
		case market.TrendBullish:
			notes = append(notes, fmt.Sprintf("HIGH HYPE (%d/100), the crowd is bullish.", set.Sentiment.Score))
			score++
		case market.TrendBearish:
			notes = append(notes, fmt.Sprintf("Crowd fear reading (%d/100). Contrarian watch.", set.Sentiment.Score))
		}
	}

	label := LabelNeutral
	switch {
	case score >= strongThreshold:
		label = LabelStrongBuy
	case score >= leanThreshold:
		label = LabelBuy
	case score <= -strongThreshold:
		label = LabelStrongSell
	case score <= -leanThreshold:
		label = LabelSell
	}
	if len(notes) == 0 {
		notes = append(notes, "No strong signals either way.")
	}
	return Verdict{Label: label, Text: render(label, notes), Score: score}
}
