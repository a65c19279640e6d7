// Package scanner matches the strategy catalog against current market
// features. Matching fails closed: a rule that cannot be satisfied rejects
// the strategy.
package scanner

import (
	"strategy-lab/internal/catalog"
	"strategy-lab/internal/features"
	"strategy-lab/internal/market"
)

// Signal is one catalog strategy whose entry rules the current market
// satisfies, paired with the feature set that triggered it.
type Signal struct {
	StrategyID   string
	StrategyName string
	Direction    string
	Features     features.Set
	Legs         []catalog.Leg
}

// IsApplicable reports whether the strategy's entry rules hold for the
// given features. Directional strategies are additionally vetoed when the
// higher-timeframe trend runs against them.
func IsApplicable(def catalog.Definition, set features.Set) bool {
	if rule := def.Entry.Trend; rule != "" && features.Trend(rule) != set.Trend {
		return false
	}
	if set.IVRank < def.Entry.MinIVRank || set.IVRank > def.Entry.MaxIVRank {
		return false
	}
	if set.HTFTrend != features.TrendUnknown {
		if def.Direction == catalog.DirectionBullish && set.HTFTrend == features.TrendDown {
			return false
		}
		if def.Direction == catalog.DirectionBearish && set.HTFTrend == features.TrendUp {
			return false
		}
	}
	return true
}

// Scan analyzes the snapshot once and filters the catalog in order. The
// first signal is the top pick.
func Scan(defs []catalog.Definition, snap market.Snapshot) []Signal {
	set := features.Analyze(snap)
	var signals []Signal
	for _, def := range defs {
		if !IsApplicable(def, set) {
			continue
		}
		signals = append(signals, Signal{
			StrategyID:   def.ID,
			StrategyName: def.Name,
			Direction:    def.Direction,
			Features:     set,
			Legs:         def.Legs,
		})
	}
	return signals
}
