package broker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const dryRunStartingCash = 100_000

// DryRun satisfies the Broker contract without touching a network. Orders
// are acknowledged and logged, nothing else happens.
type DryRun struct {
	log *zap.Logger

	mu       sync.Mutex
	orderSeq int
}

func NewDryRun(log *zap.Logger) *DryRun {
	return &DryRun{log: log}
}

func (d *DryRun) Account(ctx context.Context) (Account, error) {
	return Account{
		Cash:           dryRunStartingCash,
		BuyingPower:    dryRunStartingCash,
		Equity:         dryRunStartingCash,
		PortfolioValue: dryRunStartingCash,
	}, nil
}

func (d *DryRun) OpenPositions(ctx context.Context) ([]Position, error) {
	return nil, nil
}

func (d *DryRun) SubmitMarketOrder(ctx context.Context, symbol string, qty int, side string) (string, error) {
	d.mu.Lock()
	d.orderSeq++
	id := fmt.Sprintf("DRY-RUN-%d", d.orderSeq)
	d.mu.Unlock()
	d.log.Info("dry run order acknowledged",
		zap.String("order", id),
		zap.String("symbol", symbol),
		zap.Int("qty", qty),
		zap.String("side", side))
	return id, nil
}

func (d *DryRun) ClosePosition(ctx context.Context, symbol string) (bool, error) {
	d.log.Info("dry run position close acknowledged", zap.String("symbol", symbol))
	return true, nil
}
