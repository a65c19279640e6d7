// Package broker abstracts order routing. The engine only ever talks to the
// Broker interface; whether fills are real is a deployment decision.
package broker

import "context"

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

type Account struct {
	Cash           float64
	BuyingPower    float64
	Equity         float64
	PortfolioValue float64
}

type Position struct {
	Symbol        string
	Qty           int
	AvgEntryPrice float64
	CurrentPrice  float64
	UnrealizedPnL float64
}

type Broker interface {
	Account(ctx context.Context) (Account, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	// SubmitMarketOrder routes a day market order and returns the broker's
	// order id.
	SubmitMarketOrder(ctx context.Context, symbol string, qty int, side string) (string, error)
	ClosePosition(ctx context.Context, symbol string) (bool, error)
}
