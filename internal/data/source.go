// Package data implements the market data contracts the engine consumes.
// Sources degrade instead of failing: a dead feed yields an empty snapshot
// or safe macro defaults, never an aborted cycle.
package data

import (
	"context"

	"strategy-lab/internal/market"
)

// Source produces a point-in-time snapshot for one symbol. A total fetch
// failure returns an empty snapshot and a nil error; the engine skips the
// cycle.
type Source interface {
	Snapshot(ctx context.Context, symbol string) (market.Snapshot, error)
}

// MacroSource produces the broad-market backdrop. Implementations return
// safe defaults ({VIX 20, BULLISH}) when the feed is unavailable.
type MacroSource interface {
	Macro(ctx context.Context) (market.Macro, error)
}

// SentimentSource reads the crowd. Absence of data reads as
// {score 0, NEUTRAL}.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (market.Sentiment, error)
}
