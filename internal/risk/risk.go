// Package risk is the pre-trade gate. All checks run in a fixed order and
// the first failure wins; a denial is a result, not an error.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"strategy-lab/internal/config"
)

// HaltGate is the slice of the kill switch the risk manager needs: polling
// the halt and pulling the cord itself when a hard limit trips.
type HaltGate interface {
	Halted() bool
	TriggerAutoPause(reason string) error
}

// Manager tracks intraday counters and enforces the account-protection
// limits. Counters reset lazily on the first access of a new calendar day.
type Manager struct {
	limits config.RiskConfig
	gate   HaltGate
	log    *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	day         time.Time
	tradesToday int
	pnlToday    float64
	lossStreak  int
}

func New(limits config.RiskConfig, gate HaltGate, log *zap.Logger) *Manager {
	return &Manager{limits: limits, gate: gate, log: log, now: time.Now}
}

// CanTrade runs every limit check against the proposed new position.
// marketChangePct is the broad market's intraday move in percent.
func (m *Manager) CanTrade(accountValue float64, openPositions int, vix, marketChangePct float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDay()

	if m.gate != nil && m.gate.Halted() {
		return false, "halt marker active, trading is stopped"
	}
	if m.tradesToday >= m.limits.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", m.tradesToday, m.limits.MaxTradesPerDay)
	}
	if accountValue > 0 {
		lossPct := m.pnlToday / accountValue * 100
		if lossPct < -m.limits.MaxDailyLossPct {
			reason := fmt.Sprintf("daily loss limit hit (%.2f%% < -%.2f%%)", lossPct, m.limits.MaxDailyLossPct)
			m.autoPause(reason)
			return false, reason
		}
	}
	if m.lossStreak >= m.limits.ConsecutiveLossLimit {
		reason := fmt.Sprintf("%d losses in a row, stepping back for the day", m.lossStreak)
		m.autoPause(reason)
		return false, reason
	}
	if openPositions >= m.limits.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions reached (%d/%d)", openPositions, m.limits.MaxOpenPositions)
	}
	if vix > m.limits.VIXPanicThreshold {
		return false, fmt.Sprintf("market panic mode (VIX %.1f > %.1f)", vix, m.limits.VIXPanicThreshold)
	}
	if marketChangePct < m.limits.MarketCrashThresholdPct {
		return false, fmt.Sprintf("market crashing (%.2f%% today)", marketChangePct)
	}
	if !m.inTradingWindow(m.now()) {
		return false, "outside the trading window (session open/close buffers)"
	}
	return true, "all risk checks passed"
}

// PositionSize returns the number of contracts to trade: one when buying
// power covers the per-trade notional cap, otherwise zero.
func (m *Manager) PositionSize(accountValue, buyingPower float64) int {
	if buyingPower < m.limits.MaxPositionSizeUSD {
		return 0
	}
	return 1
}

// RecordOutcome feeds one closed trade back into the daily counters.
func (m *Manager) RecordOutcome(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDay()
	m.tradesToday++
	m.pnlToday += pnl
	if pnl < 0 {
		m.lossStreak++
	} else {
		m.lossStreak = 0
	}
}

// Summary is a point-in-time view of the daily counters.
type Summary struct {
	TradesToday       int
	PnLToday          float64
	ConsecutiveLosses int
	Halted            bool
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDay()
	s := Summary{
		TradesToday:       m.tradesToday,
		PnLToday:          m.pnlToday,
		ConsecutiveLosses: m.lossStreak,
	}
	if m.gate != nil {
		s.Halted = m.gate.Halted()
	}
	return s
}

// The session window trusts the host clock's locale; no timezone conversion
// happens here.
func (m *Manager) inTradingWindow(now time.Time) bool {
	minutes := now.Hour()*60 + now.Minute()
	open := 9*60 + 30 + int(m.limits.OpenBuffer.Minutes())
	close := 16*60 - int(m.limits.CloseBuffer.Minutes())
	return minutes >= open && minutes <= close
}

func (m *Manager) resetIfNewDay() {
	y, mo, d := m.now().Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.Local)
	if m.day.Equal(today) {
		return
	}
	m.day = today
	m.tradesToday = 0
	m.pnlToday = 0
	m.lossStreak = 0
}

func (m *Manager) autoPause(reason string) {
	if m.gate == nil {
		return
	}
	if err := m.gate.TriggerAutoPause(reason); err != nil {
		m.log.Warn("auto pause failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	m.log.Warn("trading auto-paused", zap.String("reason", reason))
}
