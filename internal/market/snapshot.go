package market

// Trend tags shared by the macro context and sector classification.
const (
	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"
)

// Sentiment is a crowd-hype reading for one symbol. Score runs 0-100.
type Sentiment struct {
	Score     int
	Direction string
	Mentions  int
}

// Macro is the broad-market backdrop for a cycle: volatility index level,
// overall market trend and the market's intraday change.
type Macro struct {
	VIX       float64
	Trend     string
	ChangePct float64
}

// Snapshot is one point-in-time view of a tradeable symbol. Close series are
// ordered oldest first. Optional series may be empty; Sentiment may be nil.
type Snapshot struct {
	Symbol    string
	Price     float64
	DayOpen   float64
	DayHigh   float64
	DayLow    float64
	ChangePct float64
	Volume    int64

	Closes    []float64 // 1-minute closes
	HTFCloses []float64 // hourly closes
	SMA200    float64
	IV        float64
	IVHistory []float64

	SectorCloses []float64
	Sentiment    *Sentiment
}

// Empty reports whether the snapshot carries no price series. An empty
// snapshot means the data source had nothing usable this cycle.
func (s Snapshot) Empty() bool {
	return len(s.Closes) == 0
}
