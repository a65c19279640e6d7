// Package engine orchestrates one decision cycle: fetch, judge, scan,
// manage positions, trade. Collaborator failures degrade the cycle, they
// never abort it.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/broker"
	"strategy-lab/internal/catalog"
	"strategy-lab/internal/data"
	"strategy-lab/internal/features"
	"strategy-lab/internal/halt"
	"strategy-lab/internal/history"
	"strategy-lab/internal/judge"
	"strategy-lab/internal/market"
	"strategy-lab/internal/metrics"
	"strategy-lab/internal/paper"
	"strategy-lab/internal/risk"
	"strategy-lab/internal/scanner"
	"strategy-lab/internal/state"
)

const (
	alertDedupWindow = 30 * time.Minute

	// Expected daily move backing the fixed prediction model: 0.45% per
	// trading hour over a 6.5h session, quoted as a daily percentage.
	hourlyMovePct = 0.45
	sessionHours  = 6.5
	confidence    = 85
)

// Notifier is the slice of the alerting client the engine drives.
type Notifier interface {
	SignalFound(ctx context.Context, symbol string, sig scanner.Signal, verdict string, targetPrice float64, confidence int) error
	TradeOpened(ctx context.Context, symbol string, sig scanner.Signal, tradeID string, entryPrice float64) error
	TradeClosed(ctx context.Context, trade state.TradeRecord) error
	RiskBreach(ctx context.Context, reason string) error
	DailySummary(ctx context.Context, stats paper.Stats) error
}

// Prediction is the fixed-model price projection attached to the best bet.
type Prediction struct {
	MovePct     float64
	TargetPrice float64
	Confidence  int
}

// BestBet is the cycle's top signal enriched with its projection.
type BestBet struct {
	scanner.Signal
	Prediction Prediction
}

// CycleResult reports everything one cycle decided.
type CycleResult struct {
	Time   time.Time
	Symbol string

	Skipped    bool
	SkipReason string
	Halted     bool
	HaltReason string

	Verdict   judge.Verdict
	Signals   []scanner.Signal
	Best      *BestBet
	Portfolio paper.Stats
	Closed    []state.TradeRecord

	TradeID    string
	OrderID    string
	RiskReason string
}

// AlertTracker deduplicates signal alerts: one alert per strategy per
// window. The orchestrator owns the value and passes it into every cycle.
type AlertTracker struct {
	LastStrategy string
	LastAt       time.Time
}

// ShouldAlert records and approves the alert when the strategy changed or
// the window has lapsed.
func (t *AlertTracker) ShouldAlert(strategy string, now time.Time, window time.Duration) bool {
	if strategy == t.LastStrategy && now.Sub(t.LastAt) <= window {
		return false
	}
	t.LastStrategy = strategy
	t.LastAt = now
	return true
}

type Config struct {
	Symbol        string
	PollInterval  time.Duration
	AutoTrade     bool
	MinConfidence int
}

type Engine struct {
	cfg  Config
	log  *zap.Logger
	mtr  *metrics.Metrics
	defs []catalog.Definition

	source    data.Source
	macro     data.MacroSource
	sentiment data.SentimentSource // optional
	trader    *paper.Trader
	riskMgr   *risk.Manager   // optional
	killer    *halt.Switch    // optional
	brk       broker.Broker   // optional
	notify    Notifier        // optional
	archive   *history.Writer // optional

	now func() time.Time
}

func New(
	cfg Config,
	defs []catalog.Definition,
	source data.Source,
	macro data.MacroSource,
	sentiment data.SentimentSource,
	trader *paper.Trader,
	riskMgr *risk.Manager,
	killer *halt.Switch,
	brk broker.Broker,
	notify Notifier,
	mtr *metrics.Metrics,
	archive *history.Writer,
	log *zap.Logger,
) *Engine {
	if mtr == nil {
		mtr = metrics.NewNoop()
	}
	return &Engine{
		cfg:       cfg,
		log:       log,
		mtr:       mtr,
		defs:      defs,
		source:    source,
		macro:     macro,
		sentiment: sentiment,
		trader:    trader,
		riskMgr:   riskMgr,
		killer:    killer,
		brk:       brk,
		notify:    notify,
		archive:   archive,
		now:       time.Now,
	}
}

// RunCycle executes one full decision pass. The returned error is reserved
// for context cancellation; every domain failure lands in the result.
func (e *Engine) RunCycle(ctx context.Context, tracker *AlertTracker) (CycleResult, error) {
	now := e.now()
	res := CycleResult{Time: now, Symbol: e.cfg.Symbol}
	e.mtr.CyclesRun.Inc()

	if e.killer != nil && e.killer.Halted() {
		res.Halted = true
		res.HaltReason = e.killer.Reason()
		e.log.Warn("trading halted, monitoring only", zap.String("reason", res.HaltReason))
	}

	macro := market.Macro{VIX: 20, Trend: market.TrendBullish}
	if e.macro != nil {
		if m, err := e.macro.Macro(ctx); err != nil {
			e.log.Warn("macro fetch failed, using defaults", zap.Error(err))
		} else {
			macro = m
		}
	}

	snap, err := e.source.Snapshot(ctx, e.cfg.Symbol)
	if err != nil {
		e.log.Warn("snapshot fetch failed", zap.Error(err))
	}
	if snap.Empty() {
		res.Skipped = true
		res.SkipReason = "no market data"
		e.mtr.CyclesSkipped.Inc()
		return res, ctx.Err()
	}

	if e.sentiment != nil {
		if s, err := e.sentiment.Sentiment(ctx, e.cfg.Symbol); err != nil {
			e.log.Warn("sentiment fetch failed", zap.Error(err))
		} else {
			snap.Sentiment = &s
		}
	}

	// Manage what is already open before considering anything new.
	closed, err := e.trader.UpdatePositions(ctx, snap.Price)
	if err != nil {
		e.log.Warn("position sweep failed", zap.Error(err))
	}
	res.Closed = closed
	for _, trade := range closed {
		e.mtr.TradesClosed.Inc()
		if e.riskMgr != nil {
			e.riskMgr.RecordOutcome(trade.PnL)
		}
		e.notifyTradeClosed(ctx, trade)
	}

	set := features.Analyze(snap)
	res.Verdict = judge.Decide(set, macro)
	res.Signals = scanner.Scan(e.defs, snap)
	if len(res.Signals) > 0 {
		e.mtr.SignalsFound.Inc()
	}

	if stats, err := e.trader.PortfolioStats(ctx); err != nil {
		e.log.Warn("portfolio stats failed", zap.Error(err))
	} else {
		res.Portfolio = stats
	}

	if len(res.Signals) > 0 && !res.Verdict.Blocked {
		top := res.Signals[0]
		res.Best = &BestBet{Signal: top, Prediction: prediction(top.Direction, snap.Price)}
		e.pursue(ctx, &res, snap, macro, tracker)
	}

	e.archiveDecision(res, snap, macro)
	return res, ctx.Err()
}

// pursue handles alerting and trade placement for the cycle's best bet.
func (e *Engine) pursue(ctx context.Context, res *CycleResult, snap market.Snapshot, macro market.Macro, tracker *AlertTracker) {
	best := res.Best

	if tracker.ShouldAlert(best.StrategyID, res.Time, alertDedupWindow) && e.notify != nil {
		err := e.notify.SignalFound(ctx, res.Symbol, best.Signal, res.Verdict.Text,
			best.Prediction.TargetPrice, best.Prediction.Confidence)
		if err != nil {
			e.mtr.AlertsFailed.Inc()
			e.log.Warn("signal alert failed", zap.Error(err))
		}
	}

	if res.Halted {
		return
	}
	for _, open := range res.Portfolio.Open {
		if open.StrategyID == best.StrategyID {
			res.RiskReason = "strategy already holds an open position"
			return
		}
	}
	if best.Prediction.Confidence < e.cfg.MinConfidence {
		return
	}

	ec := paper.EntryContext{
		Symbol:         res.Symbol,
		Price:          snap.Price,
		IV:             snap.IV,
		VIX:            macro.VIX,
		MarketTrend:    macro.Trend,
		Verdict:        res.Verdict.Text,
		SentimentScore: best.Features.Sentiment.Score,
	}
	tradeID, err := e.trader.OpenTrade(ctx, best.Signal, snap.Price, ec)
	if err != nil {
		e.log.Warn("paper open failed", zap.Error(err))
	} else {
		res.TradeID = tradeID
		e.mtr.TradesOpened.Inc()
		if e.notify != nil {
			if err := e.notify.TradeOpened(ctx, res.Symbol, best.Signal, tradeID, snap.Price); err != nil {
				e.mtr.AlertsFailed.Inc()
				e.log.Warn("trade alert failed", zap.Error(err))
			}
		}
	}

	if e.cfg.AutoTrade && e.brk != nil && e.riskMgr != nil {
		e.routeLive(ctx, res, macro)
	}
}

// routeLive pushes the best bet through the risk gate and out to the
// broker. Every failure is reported in the result and nowhere else.
func (e *Engine) routeLive(ctx context.Context, res *CycleResult, macro market.Macro) {
	account, err := e.brk.Account(ctx)
	if err != nil {
		e.log.Warn("broker account fetch failed", zap.Error(err))
		return
	}
	positions, err := e.brk.OpenPositions(ctx)
	if err != nil {
		e.log.Warn("broker positions fetch failed", zap.Error(err))
		return
	}

	ok, reason := e.riskMgr.CanTrade(account.PortfolioValue, len(positions), macro.VIX, macro.ChangePct)
	if !ok {
		res.RiskReason = reason
		e.mtr.RiskDenied.Inc()
		e.log.Warn("trade denied by risk checks", zap.String("reason", reason))
		if e.notify != nil {
			if err := e.notify.RiskBreach(ctx, reason); err != nil {
				e.mtr.AlertsFailed.Inc()
			}
		}
		return
	}

	qty := e.riskMgr.PositionSize(account.PortfolioValue, account.BuyingPower)
	if qty == 0 {
		res.RiskReason = "buying power below the per-trade notional cap"
		return
	}
	side := broker.SideBuy
	if res.Best.Direction == market.TrendBearish {
		side = broker.SideSell
	}
	orderID, err := e.brk.SubmitMarketOrder(ctx, res.Symbol, qty, side)
	if err != nil {
		e.log.Warn("order submit failed", zap.Error(err))
		return
	}
	res.OrderID = orderID
	e.log.Info("live order routed", zap.String("order", orderID), zap.String("side", side))
}

func (e *Engine) notifyTradeClosed(ctx context.Context, trade state.TradeRecord) {
	if e.notify == nil {
		return
	}
	if err := e.notify.TradeClosed(ctx, trade); err != nil {
		e.mtr.AlertsFailed.Inc()
		e.log.Warn("close alert failed", zap.Error(err))
	}
}

func (e *Engine) archiveDecision(res CycleResult, snap market.Snapshot, macro market.Macro) {
	if e.archive == nil {
		return
	}
	d := history.Decision{
		Time:        res.Time,
		Symbol:      res.Symbol,
		Price:       snap.Price,
		IV:          snap.IV,
		VIX:         macro.VIX,
		MarketTrend: macro.Trend,
		Verdict:     res.Verdict.Text,
		TradeID:     res.TradeID,
	}
	if res.Best != nil {
		d.StrategyID = res.Best.StrategyID
		d.Direction = res.Best.Direction
		d.Confidence = res.Best.Prediction.Confidence
	}
	e.archive.Enqueue(d)
}

// prediction applies the fixed daily-move model: the expected hourly drift
// extended across the session, signed by the signal direction.
func prediction(direction string, price float64) Prediction {
	movePct := hourlyMovePct * sessionHours
	if direction == market.TrendBearish {
		movePct = -movePct
	}
	return Prediction{
		MovePct:     movePct,
		TargetPrice: price * (1 + movePct/100),
		Confidence:  confidence,
	}
}

// Run drives cycles at the poll interval until the context ends. The first
// cycle fires immediately.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	tracker := &AlertTracker{}
	lastDay := e.now().Day()
	for {
		res, err := e.RunCycle(ctx, tracker)
		if err != nil {
			return err
		}
		e.logCycle(res)

		if day := e.now().Day(); day != lastDay {
			lastDay = day
			if e.notify != nil {
				if err := e.notify.DailySummary(ctx, res.Portfolio); err != nil {
					e.mtr.AlertsFailed.Inc()
					e.log.Warn("daily summary failed", zap.Error(err))
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) logCycle(res CycleResult) {
	if res.Skipped {
		e.log.Info("cycle skipped", zap.String("reason", res.SkipReason))
		return
	}
	fields := []zap.Field{
		zap.String("verdict", res.Verdict.Label),
		zap.Int("signals", len(res.Signals)),
		zap.Int("closed", len(res.Closed)),
	}
	if res.Best != nil {
		fields = append(fields, zap.String("best", res.Best.StrategyID))
	}
	if res.TradeID != "" {
		fields = append(fields, zap.String("trade", res.TradeID))
	}
	if res.RiskReason != "" {
		fields = append(fields, zap.String("risk", res.RiskReason))
	}
	e.log.Info("cycle complete", fields...)
}
