// Package position tracks open positions opened and closed by the
// signal consumer: entry/current price, unrealized PnL, and the portfolio
// equity view. It is a supplemented feature (named in the data model but
// only lightly specified) grounded on the original's position manager,
// trimmed of its Kelly/volatility sizing strategies and backtesting ties,
// which fall under this platform's indicator/ML Non-goal.
package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// SizingStrategy computes a position size for a proposed trade given
// current portfolio value, mirroring the Strategy-pattern sizing
// strategies in the original (FixedSize, Percentage).
type SizingStrategy interface {
	Name() string
	Size(portfolioValue, maxSize decimal.Decimal) decimal.Decimal
}

// FixedSize always proposes the same notional, capped by maxSize.
type FixedSize struct {
	Amount decimal.Decimal
}

func (f FixedSize) Name() string { return "fixed" }
func (f FixedSize) Size(_ decimal.Decimal, maxSize decimal.Decimal) decimal.Decimal {
	if f.Amount.GreaterThan(maxSize) {
		return maxSize
	}
	return f.Amount
}

// Percentage proposes a fixed fraction of portfolio value, capped by maxSize.
type Percentage struct {
	Fraction float64
}

func (p Percentage) Name() string { return "percentage" }
func (p Percentage) Size(portfolioValue, maxSize decimal.Decimal) decimal.Decimal {
	proposed := portfolioValue.Mul(decimal.NewFromFloat(p.Fraction))
	if proposed.GreaterThan(maxSize) {
		return maxSize
	}
	return proposed
}

// Manager tracks open positions and realized PnL against a portfolio
// value baseline.
type Manager struct {
	mu             sync.Mutex
	portfolioValue decimal.Decimal
	positions      map[string]domain.Position
	logger         *logger.Logger
}

func New(initialPortfolioValue decimal.Decimal, log *logger.Logger) *Manager {
	return &Manager{
		portfolioValue: initialPortfolioValue,
		positions:      make(map[string]domain.Position),
		logger:         log.Named("position"),
	}
}

// Open records a new position. One open position per symbol at a time,
// matching the Risk Manager's same-symbol correlation rule.
func (m *Manager) Open(symbol string, side domain.PositionSide, size, entryPx, stopPx, takePx decimal.Decimal) domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := domain.Position{
		ID:        symbol + ":" + time.Now().UTC().Format(time.RFC3339Nano),
		Symbol:    symbol,
		Side:      side,
		Size:      size,
		EntryPx:   entryPx,
		CurrentPx: entryPx,
		StopPx:    stopPx,
		TakePx:    takePx,
		OpenedAt:  time.Now(),
	}
	m.positions[symbol] = pos
	return pos
}

// UpdatePrices refreshes unrealized PnL for every open position whose
// symbol is present in prices.
func (m *Manager) UpdatePrices(prices map[string]decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for symbol, pos := range m.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		pos.CurrentPx = price
		pos.UnrealizedPnl = unrealizedPnl(pos, price)
		m.positions[symbol] = pos
	}
}

func unrealizedPnl(pos domain.Position, currentPx decimal.Decimal) decimal.Decimal {
	if pos.Side == domain.PositionLong {
		return currentPx.Sub(pos.EntryPx).Mul(pos.Size)
	}
	return pos.EntryPx.Sub(currentPx).Mul(pos.Size)
}

// feeRate approximates the round-trip fee taken on close, mirroring the
// original's flat 0.1% applied to entry+exit notional.
const feeRate = 0.001

// Close realizes PnL for symbol at exitPx, removes the position, and
// rolls the realized PnL (net of fees) into portfolio value.
func (m *Manager) Close(symbol string, exitPx decimal.Decimal, reason string) (domain.Position, decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return domain.Position{}, decimal.Zero, false
	}

	grossPnl := unrealizedPnl(pos, exitPx)
	fees := pos.EntryPx.Add(exitPx).Mul(pos.Size).Mul(decimal.NewFromFloat(feeRate))
	netPnl := grossPnl.Sub(fees)

	now := time.Now()
	pos.ClosedAt = &now
	pos.CurrentPx = exitPx
	pos.RealizedPnl = netPnl
	pos.UnrealizedPnl = decimal.Zero

	m.portfolioValue = m.portfolioValue.Add(netPnl)
	delete(m.positions, symbol)

	m.logger.Info("position closed - symbol: %s, net_pnl: %s, reason: %s", symbol, netPnl.String(), reason)
	return pos, netPnl, true
}

// OpenPositions returns a snapshot of every currently open position.
func (m *Manager) OpenPositions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// PortfolioValue returns the current realized portfolio baseline
// (excludes unrealized PnL; callers add that separately for a mark-to-market view).
func (m *Manager) PortfolioValue() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolioValue
}
