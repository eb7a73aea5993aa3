package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

func testManager(limits Limits) *Manager {
	return New(limits, logger.New("test"))
}

func TestIsOpportunitySafeRejectsOverMaxPositionSize(t *testing.T) {
	m := testManager(Limits{MaxPositionSize: decimal.NewFromInt(1000), MaxDailyTrades: 100, MaxOpenPositions: 10})

	opp := domain.Opportunity{Symbol: "BTC/USDT", BuyPx: decimal.NewFromInt(100), TradableSize: decimal.NewFromInt(20)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.False(t, ok)
	assert.Contains(t, reason, "max position size")
}

func TestIsOpportunitySafeRejectsDailyLossLimit(t *testing.T) {
	m := testManager(Limits{MaxPositionSize: decimal.NewFromInt(100000), MaxDailyLoss: decimal.NewFromInt(500), MaxDailyTrades: 100, MaxOpenPositions: 10})
	m.RecordTrade("BTC/USDT", decimal.NewFromInt(-500), false)

	opp := domain.Opportunity{Symbol: "ETH/USDT", BuyPx: decimal.NewFromInt(10), TradableSize: decimal.NewFromInt(1)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.False(t, ok)
	assert.Contains(t, reason, "daily loss")
}

func TestIsOpportunitySafeRejectsDailyTradeLimit(t *testing.T) {
	m := testManager(Limits{MaxPositionSize: decimal.NewFromInt(100000), MaxDailyLoss: decimal.NewFromInt(100000), MaxDailyTrades: 1, MaxOpenPositions: 10})
	m.RecordTrade("BTC/USDT", decimal.NewFromInt(10), true)

	opp := domain.Opportunity{Symbol: "ETH/USDT", BuyPx: decimal.NewFromInt(10), TradableSize: decimal.NewFromInt(1)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.False(t, ok)
	assert.Contains(t, reason, "daily trade limit")
}

func TestIsOpportunitySafeRejectsMaxOpenPositions(t *testing.T) {
	m := testManager(Limits{MaxPositionSize: decimal.NewFromInt(100000), MaxDailyLoss: decimal.NewFromInt(100000), MaxDailyTrades: 100, MaxOpenPositions: 1})
	m.RecordTrade("BTC/USDT", decimal.Zero, true)

	opp := domain.Opportunity{Symbol: "ETH/USDT", BuyPx: decimal.NewFromInt(10), TradableSize: decimal.NewFromInt(1)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.False(t, ok)
	assert.Contains(t, reason, "max open positions")
}

func TestIsOpportunitySafeRejectsCorrelatedSymbol(t *testing.T) {
	m := testManager(Limits{MaxPositionSize: decimal.NewFromInt(100000), MaxDailyLoss: decimal.NewFromInt(100000), MaxDailyTrades: 100, MaxOpenPositions: 10})
	m.RecordTrade("BTC/USDT", decimal.Zero, true)

	opp := domain.Opportunity{Symbol: "BTC/USDT", BuyPx: decimal.NewFromInt(10), TradableSize: decimal.NewFromInt(1)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.False(t, ok)
	assert.Contains(t, reason, "correlated")
}

func TestIsOpportunitySafeAllowsWithinLimits(t *testing.T) {
	m := testManager(DefaultLimits())
	opp := domain.Opportunity{Symbol: "BTC/USDT", BuyPx: decimal.NewFromInt(100), TradableSize: decimal.NewFromInt(1)}
	ok, reason := m.IsOpportunitySafe(opp)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestIsPositionSafeRejectsExcessiveStopDistance(t *testing.T) {
	m := testManager(Limits{MaxPositionRisk: 0.01})
	pos := domain.Position{EntryPx: decimal.NewFromInt(100), StopPx: decimal.NewFromInt(90)}
	ok, reason := m.IsPositionSafe(pos)
	assert.False(t, ok)
	assert.Contains(t, reason, "stop-loss distance")
}

func TestIsPositionSafeAllowsZeroStop(t *testing.T) {
	m := testManager(DefaultLimits())
	pos := domain.Position{EntryPx: decimal.NewFromInt(100)}
	ok, _ := m.IsPositionSafe(pos)
	assert.True(t, ok)
}

func TestRecordTradeTracksOpenCountAndDrawdown(t *testing.T) {
	m := testManager(DefaultLimits())
	m.RecordTrade("BTC/USDT", decimal.NewFromInt(-50), true)
	state := m.State()
	assert.Equal(t, 1, state.DailyTrades)
	assert.True(t, state.DailyPnL.Equal(decimal.NewFromInt(-50)))
	assert.True(t, state.MaxDrawdown.Equal(decimal.NewFromInt(50)))

	m.RecordTrade("BTC/USDT", decimal.NewFromInt(20), false)
	state = m.State()
	assert.Equal(t, 2, state.DailyTrades)
	assert.True(t, state.DailyPnL.Equal(decimal.NewFromInt(-30)))
}
