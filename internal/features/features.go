// Package features derives technical features from raw market snapshots.
// Every function is pure and total: short or missing input series degrade to
// a documented neutral value instead of failing.
package features

import (
	"strategy-lab/internal/market"
)

type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
	TrendUnknown  Trend = "UNKNOWN"
)

type Level string

const (
	LevelSupport    Level = "AT_SUPPORT"
	LevelResistance Level = "AT_RESISTANCE"
	LevelMiddle     Level = "MIDDLE"
)

type Divergence string

const (
	DivergenceBull Divergence = "BULL_DIV"
	DivergenceBear Divergence = "BEAR_DIV"
	DivergenceNone Divergence = "NONE"
)

type SectorAlignment string

const (
	WithSector    SectorAlignment = "WITH_SECTOR"
	AgainstSector SectorAlignment = "AGAINST_SECTOR"
	SectorUnknown SectorAlignment = "UNKNOWN"
)

const (
	trendLookback      = 50
	levelLookback      = 50
	divergenceLookback = 20
	divergenceSpan     = 10
	smaLookback        = 200
	rsiPeriod          = 14
	levelBufferFrac    = 0.10
)

// Set is the full feature vector one snapshot reduces to, plus pass-through
// of the raw values downstream consumers need.
type Set struct {
	Trend       Trend
	HTFTrend    Trend
	IVRank      int
	KeyLevel    Level
	Divergence  Divergence
	Sector      SectorAlignment
	SectorTrend string
	Sentiment   market.Sentiment

	Price  float64
	IV     float64
	SMA200 float64
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// CalcTrend classifies a close series by price vs SMA20 vs SMA50 stacking.
// Fewer than 50 closes is UNKNOWN.
func CalcTrend(closes []float64) Trend {
	if len(closes) < trendLookback {
		return TrendUnknown
	}
	price := closes[len(closes)-1]
	sma20 := mean(closes[len(closes)-20:])
	sma50 := mean(closes[len(closes)-50:])
	switch {
	case price > sma20 && sma20 > sma50:
		return TrendUp
	case price < sma20 && sma20 < sma50:
		return TrendDown
	default:
		return TrendSideways
	}
}

// IVRank places the current IV within the historical min/max range on a
// 0-100 scale. No history or a flat range reads as the midpoint 50.
func IVRank(current float64, history []float64) int {
	if len(history) == 0 {
		return 50
	}
	low, high := history[0], history[0]
	for _, v := range history[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	if high == low {
		return 50
	}
	rank := (current - low) / (high - low) * 100
	if rank < 0 {
		rank = 0
	}
	if rank > 100 {
		rank = 100
	}
	return int(rank)
}

// RSI computes a 14-period relative strength index over the trailing deltas
// of the series. Fewer than 15 closes reads as the neutral 50; an all-gain
// window reads as 100.
func RSI(closes []float64) float64 {
	if len(closes) < rsiPeriod+1 {
		return 50
	}
	var gain, loss float64
	for i := len(closes) - rsiPeriod; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / rsiPeriod
	avgLoss := loss / rsiPeriod
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// KeyLevel reports whether the last price sits near the 50-close low
// (support) or high (resistance), with a buffer of 10% of the range.
func KeyLevel(closes []float64) Level {
	if len(closes) < levelLookback {
		return LevelMiddle
	}
	window := closes[len(closes)-levelLookback:]
	low, high := window[0], window[0]
	for _, v := range window[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	price := closes[len(closes)-1]
	buffer := (high - low) * levelBufferFrac
	switch {
	case price <= low+buffer:
		return LevelSupport
	case price >= high-buffer:
		return LevelResistance
	default:
		return LevelMiddle
	}
}

// RSIDivergence compares the 10-candle price slope against the 10-candle RSI
// slope. Price down with momentum up is a bull divergence; price up with
// momentum down is a bear divergence. Needs at least 20 closes.
func RSIDivergence(closes []float64) Divergence {
	if len(closes) < divergenceLookback {
		return DivergenceNone
	}
	priceSlope := closes[len(closes)-1] - closes[len(closes)-divergenceSpan]
	rsiSlope := RSI(closes) - RSI(closes[:len(closes)-divergenceSpan])
	switch {
	case priceSlope < 0 && rsiSlope > 0:
		return DivergenceBull
	case priceSlope > 0 && rsiSlope < 0:
		return DivergenceBear
	default:
		return DivergenceNone
	}
}

// SectorCorrelation reports whether the instrument trades with or against
// its sector proxy.
func SectorCorrelation(closes, sectorCloses []float64) SectorAlignment {
	if len(sectorCloses) == 0 {
		return SectorUnknown
	}
	if CalcTrend(closes) == CalcTrend(sectorCloses) {
		return WithSector
	}
	return AgainstSector
}

func sectorTrendTag(t Trend) string {
	switch t {
	case TrendUp:
		return market.TrendBullish
	case TrendDown:
		return market.TrendBearish
	default:
		return market.TrendNeutral
	}
}

// Analyze reduces a snapshot to its feature set. Missing optional inputs
// (sector series, sentiment, HTF closes) degrade to neutral defaults.
func Analyze(snap market.Snapshot) Set {
	set := Set{
		Trend:       CalcTrend(snap.Closes),
		HTFTrend:    TrendUnknown,
		IVRank:      IVRank(snap.IV, snap.IVHistory),
		KeyLevel:    KeyLevel(snap.Closes),
		Divergence:  RSIDivergence(snap.Closes),
		Sector:      SectorUnknown,
		SectorTrend: market.TrendNeutral,
		IV:          snap.IV,
		SMA200:      snap.SMA200,
	}
	if len(snap.HTFCloses) > 0 {
		set.HTFTrend = CalcTrend(snap.HTFCloses)
	}
	if len(snap.SectorCloses) > 0 {
		set.Sector = SectorCorrelation(snap.Closes, snap.SectorCloses)
		set.SectorTrend = sectorTrendTag(CalcTrend(snap.SectorCloses))
	}
	if len(snap.Closes) > 0 {
		set.Price = snap.Closes[len(snap.Closes)-1]
	}
	if set.SMA200 == 0 && len(snap.Closes) >= smaLookback {
		set.SMA200 = mean(snap.Closes[len(snap.Closes)-smaLookback:])
	}
	if snap.Sentiment != nil {
		set.Sentiment = *snap.Sentiment
	} else {
		set.Sentiment = market.Sentiment{Direction: market.TrendNeutral}
	}
	return set
}
