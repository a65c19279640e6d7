package paper

import "context"

const (
	StatusActive = "ACTIVE"
	StatusReview = "REVIEW"
)

const activeWinRate = 50.0

// StrategyScore grades one strategy's closed history. A strategy stays
// ACTIVE while its win rate holds at 50% or better.
type StrategyScore struct {
	StrategyID string
	Trades     int
	WinRate    float64
	AvgPnL     float64
	TotalPnL   float64
	Status     string
}

// StrategyScores builds the scoreboard from the ledger's per-strategy
// aggregates.
func (t *Trader) StrategyScores(ctx context.Context) ([]StrategyScore, error) {
	perf, err := t.ledger.StrategyPerformance(ctx)
	if err != nil {
		return nil, err
	}
	scores := make([]StrategyScore, 0, len(perf))
	for _, p := range perf {
		score := StrategyScore{
			StrategyID: p.StrategyID,
			Trades:     p.Trades,
			AvgPnL:     p.AvgPnL,
			TotalPnL:   p.TotalPnL,
		}
		if p.Trades > 0 {
			score.WinRate = float64(p.Wins) / float64(p.Trades) * 100
		}
		score.Status = StatusReview
		if score.WinRate >= activeWinRate {
			score.Status = StatusActive
		}
		scores = append(scores, score)
	}
	return scores, nil
}
