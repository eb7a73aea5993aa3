// Package risk is the process-wide gatekeeper for opportunities and
// positions (§4.6): every accepted Opportunity and every open Position
// passes through here first, under a single mutex-guarded RiskState.
package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/metrics"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Limits are the five checks §4.6 names.
type Limits struct {
	MaxPositionSize decimal.Decimal // notional per trade
	MaxDailyLoss    decimal.Decimal // cumulative, positive magnitude
	MaxDailyTrades  int
	MaxPositionRisk float64 // stop-loss distance as fraction of entry
	MaxOpenPositions int
}

// DefaultLimits are conservative defaults; real deployments override via
// config (§6).
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:  decimal.NewFromFloat(10000),
		MaxDailyLoss:     decimal.NewFromFloat(1000),
		MaxDailyTrades:   200,
		MaxPositionRisk:  0.02,
		MaxOpenPositions: 20,
	}
}

// Manager holds RiskState under a single mutex; every method is safe for
// concurrent use (§3 invariant: RiskState is mutated only under the Risk
// Manager's lock).
type Manager struct {
	mu     sync.Mutex
	state  domain.RiskState
	limits Limits
	logger *logger.Logger

	openSymbols map[string]bool // same-symbol correlation approximation
	openCount   int
}

func New(limits Limits, log *logger.Logger) *Manager {
	return &Manager{
		limits:      limits,
		logger:      log.Named("risk"),
		openSymbols: make(map[string]bool),
		state:       domain.RiskState{LastReset: time.Now().UTC()},
	}
}

// IsOpportunitySafe runs every check against opp, gating on position size,
// daily loss/trade caps, open-position count, and same-symbol correlation.
func (m *Manager) IsOpportunitySafe(opp domain.Opportunity) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeResetLocked()

	notional := opp.TradableSize.Mul(opp.BuyPx)
	if notional.GreaterThan(m.limits.MaxPositionSize) {
		metrics.RiskRejectionsTotal.WithLabelValues("exceeds max position size").Inc()
		return false, "exceeds max position size"
	}
	if m.state.DailyPnL.Neg().GreaterThanOrEqual(m.limits.MaxDailyLoss) {
		metrics.RiskRejectionsTotal.WithLabelValues("daily loss limit reached").Inc()
		return false, "daily loss limit reached"
	}
	if m.state.DailyTrades >= m.limits.MaxDailyTrades {
		metrics.RiskRejectionsTotal.WithLabelValues("daily trade limit reached").Inc()
		return false, "daily trade limit reached"
	}
	if m.openCount >= m.limits.MaxOpenPositions {
		metrics.RiskRejectionsTotal.WithLabelValues("max open positions reached").Inc()
		return false, "max open positions reached"
	}
	if m.openSymbols[opp.Symbol] {
		metrics.RiskRejectionsTotal.WithLabelValues("correlated position already open for symbol").Inc()
		return false, "correlated position already open for symbol"
	}
	return true, ""
}

// IsPositionSafe checks a proposed position's stop-loss distance against
// maxPositionRisk before it is opened.
func (m *Manager) IsPositionSafe(pos domain.Position) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pos.StopPx.IsZero() || pos.EntryPx.IsZero() {
		return true, ""
	}
	distance := pos.EntryPx.Sub(pos.StopPx).Abs().Div(pos.EntryPx)
	d, _ := distance.Float64()
	if d > m.limits.MaxPositionRisk {
		metrics.RiskRejectionsTotal.WithLabelValues("stop-loss distance exceeds max position risk").Inc()
		return false, "stop-loss distance exceeds max position risk"
	}
	return true, ""
}

// RecordTrade updates daily counters atomically after a completed trade
// (§4.6 "updates daily counters atomically and triggers a daily reset at
// UTC rollover").
func (m *Manager) RecordTrade(symbol string, netPnl decimal.Decimal, opened bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeResetLocked()

	m.state.DailyPnL = m.state.DailyPnL.Add(netPnl)
	m.state.DailyTrades++

	if opened {
		m.openCount++
		m.openSymbols[symbol] = true
	} else {
		if m.openCount > 0 {
			m.openCount--
		}
		delete(m.openSymbols, symbol)
	}

	if netPnl.LessThan(decimal.Zero) {
		drawdown := netPnl.Abs()
		if drawdown.GreaterThan(m.state.MaxDrawdown) {
			m.state.MaxDrawdown = drawdown
		}
	}

	if pnl, ok := m.state.DailyPnL.Float64(); ok {
		metrics.RiskDailyPnL.Set(pnl)
	}
	metrics.RiskOpenPositions.Set(float64(m.openCount))
}

// State returns a snapshot of the current RiskState.
func (m *Manager) State() domain.RiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// maybeResetLocked rolls daily counters over at UTC midnight. Caller must
// hold m.mu.
func (m *Manager) maybeResetLocked() {
	now := time.Now().UTC()
	if now.YearDay() != m.state.LastReset.YearDay() || now.Year() != m.state.LastReset.Year() {
		m.logger.Info("daily risk counters reset - previous_trades: %d, previous_pnl: %s", m.state.DailyTrades, m.state.DailyPnL.String())
		m.state.DailyPnL = decimal.Zero
		m.state.DailyTrades = 0
		m.state.LastReset = now
	}
}
