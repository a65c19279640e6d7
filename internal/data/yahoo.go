package data

import (
	"context"
	"math"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"go.uber.org/zap"

	"strategy-lab/internal/market"
)

const (
	defaultIV     = 0.50
	volWindow     = 30
	tradingDays   = 252
	smaDailyBars  = 200
	intradayDays  = 5
	hourlyDays    = 30
	dailyYearDays = 365
)

// YahooSource pulls quotes and candle series from Yahoo Finance. IV is
// estimated from realized daily volatility; when even that is unavailable
// it falls back to a flat 0.50.
type YahooSource struct {
	sectorSymbol string
	log          *zap.Logger
	now          func() time.Time
}

func NewYahooSource(sectorSymbol string, log *zap.Logger) *YahooSource {
	return &YahooSource{sectorSymbol: sectorSymbol, log: log, now: time.Now}
}

func closesSince(symbol string, days int, interval datetime.Interval, now time.Time) ([]float64, error) {
	start := now.AddDate(0, 0, -days)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&now),
		Interval: interval,
	}
	iter := chart.Get(params)
	var closes []float64
	for iter.Next() {
		if c, _ := iter.Bar().Close.Float64(); c > 0 {
			closes = append(closes, c)
		}
	}
	return closes, iter.Err()
}

// Snapshot assembles the full view for one symbol. Optional pieces (hourly
// series, sector closes, IV history) degrade silently; only a missing
// intraday series makes the snapshot empty.
func (y *YahooSource) Snapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	_ = ctx // the upstream client does not thread contexts

	now := y.now()
	snap := market.Snapshot{Symbol: symbol, IV: defaultIV}

	closes, err := closesSince(symbol, intradayDays, datetime.OneMin, now)
	if err != nil || len(closes) == 0 {
		y.log.Warn("intraday series unavailable", zap.String("symbol", symbol), zap.Error(err))
		return market.Snapshot{Symbol: symbol}, nil
	}
	snap.Closes = closes
	snap.Price = closes[len(closes)-1]

	if q, err := quote.Get(symbol); err != nil {
		y.log.Warn("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
	} else {
		snap.Price = q.RegularMarketPrice
		snap.DayOpen = q.RegularMarketOpen
		snap.DayHigh = q.RegularMarketDayHigh
		snap.DayLow = q.RegularMarketDayLow
		snap.ChangePct = q.RegularMarketChangePercent
		snap.Volume = int64(q.RegularMarketVolume)
	}

	if htf, err := closesSince(symbol, hourlyDays, datetime.OneHour, now); err != nil {
		y.log.Warn("hourly series unavailable", zap.String("symbol", symbol), zap.Error(err))
	} else {
		snap.HTFCloses = htf
	}

	if daily, err := closesSince(symbol, dailyYearDays, datetime.OneDay, now); err != nil {
		y.log.Warn("daily series unavailable", zap.String("symbol", symbol), zap.Error(err))
	} else {
		if len(daily) >= smaDailyBars {
			snap.SMA200 = mean(daily[len(daily)-smaDailyBars:])
		}
		if iv := realizedVol(daily, volWindow); iv > 0 {
			snap.IV = iv
		}
		snap.IVHistory = rollingVol(daily, volWindow)
	}

	if sector, err := closesSince(y.sectorSymbol, intradayDays, datetime.OneMin, now); err != nil {
		y.log.Warn("sector series unavailable", zap.String("symbol", y.sectorSymbol), zap.Error(err))
	} else {
		snap.SectorCloses = sector
	}
	return snap, nil
}

// Macro reads the volatility index and classifies the broad market against
// its 200-day average. Every failure path falls back to a calm default.
func (y *YahooSource) Macro(ctx context.Context) (market.Macro, error) {
	_ = ctx

	macro := market.Macro{VIX: 20, Trend: market.TrendBullish}
	if q, err := quote.Get("^VIX"); err != nil {
		y.log.Warn("vix quote unavailable", zap.Error(err))
	} else if q.RegularMarketPrice > 0 {
		macro.VIX = q.RegularMarketPrice
	}

	if q, err := quote.Get("SPY"); err != nil {
		y.log.Warn("spy quote unavailable", zap.Error(err))
	} else {
		macro.ChangePct = q.RegularMarketChangePercent
	}

	daily, err := closesSince("SPY", dailyYearDays, datetime.OneDay, y.now())
	if err != nil || len(daily) < smaDailyBars {
		return macro, nil
	}
	price := daily[len(daily)-1]
	if price < mean(daily[len(daily)-smaDailyBars:]) {
		macro.Trend = market.TrendBearish
	}
	return macro, nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// realizedVol annualizes the standard deviation of daily log returns over
// the trailing window. Returns 0 when the series is too short.
func realizedVol(daily []float64, window int) float64 {
	if len(daily) < window+1 {
		return 0
	}
	tail := daily[len(daily)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] <= 0 || tail[i] <= 0 {
			return 0
		}
		returns = append(returns, math.Log(tail[i]/tail[i-1]))
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance) * math.Sqrt(tradingDays)
}

// rollingVol computes the realized-vol series across the whole history so
// the current reading can be ranked against it.
func rollingVol(daily []float64, window int) []float64 {
	if len(daily) < window+1 {
		return nil
	}
	var out []float64
	for end := window + 1; end <= len(daily); end++ {
		if v := realizedVol(daily[:end], window); v > 0 {
			out = append(out, v)
		}
	}
	return out
}
