package execution

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/orders"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type fakeCreds struct{}

func (fakeCreds) Get(context.Context, string) (connector.Credentials, error) {
	return connector.Credentials{}, nil
}

// fakeVenue fills every order immediately at a configured price unless
// failOrders is set, in which case PlaceOrder returns a rejected order.
type fakeVenue struct {
	name       string
	fillPx     decimal.Decimal
	failOrders bool
}

func (f *fakeVenue) Name() string                     { return f.name }
func (f *fakeVenue) Connect(context.Context) error    { return nil }
func (f *fakeVenue) Disconnect(context.Context) error { return nil }
func (f *fakeVenue) IsConnected() bool                { return true }
func (f *fakeVenue) GetMarketData(context.Context, []string) (map[string]domain.Ticker, error) {
	return nil, nil
}
func (f *fakeVenue) GetTicker(context.Context, string) (domain.Ticker, error) {
	return domain.Ticker{}, nil
}
func (f *fakeVenue) GetOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (f *fakeVenue) GetTrades(context.Context, string, int) ([]domain.Ticker, error) {
	return nil, nil
}
func (f *fakeVenue) PlaceOrder(_ context.Context, req connector.PlaceOrderRequest) (domain.Order, error) {
	if f.failOrders {
		return domain.Order{
			ID: req.ClientOrderID, Symbol: req.Symbol, Side: req.Side, Type: req.Type,
			Qty: req.Qty, Status: domain.OrderStatusRejected, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}, nil
	}
	return domain.Order{
		ID: req.ClientOrderID, Symbol: req.Symbol, Side: req.Side, Type: req.Type,
		Qty: req.Qty, FilledQty: req.Qty, AvgPx: f.fillPx, Status: domain.OrderStatusFilled,
		Venue: f.name, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}, nil
}
func (f *fakeVenue) CancelOrder(context.Context, string) error { return nil }
func (f *fakeVenue) GetOrderStatus(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}
func (f *fakeVenue) GetPositions(context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakeVenue) GetBalances(context.Context) ([]connector.Balance, error) {
	return nil, nil
}
func (f *fakeVenue) GetHistoricalData(context.Context, string, connector.Timeframe, time.Time, time.Time) ([]domain.Ticker, error) {
	return nil, nil
}

func newTestEngine(t *testing.T, buy, sell *fakeVenue, concurrency int) *Engine {
	t.Helper()
	registry := connector.NewRegistry(logger.New("test"), fakeCreds{}, map[string]connector.Factory{
		"binance":  func(connector.Credentials) (connector.Connector, error) { return buy, nil },
		"coinbase": func(connector.Credentials) (connector.Connector, error) { return sell, nil },
	})
	results := registry.ConnectAll(context.Background(), []string{"binance", "coinbase"})
	require.NoError(t, results["binance"])
	require.NoError(t, results["coinbase"])

	orderMgr := orders.New(orders.DefaultConfig(), registry, nil, logger.New("test"))
	return New(orderMgr, nil, logger.New("test"), concurrency)
}

func testOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID: "opp-1", Symbol: "BTC/USDT", BuyVenue: "binance", SellVenue: "coinbase",
		TradableSize: decimal.NewFromInt(1), Fees: decimal.NewFromFloat(5), EstExecSeconds: 1,
	}
}

func TestExecuteCompletesWhenBothLegsFill(t *testing.T) {
	buy := &fakeVenue{name: "binance", fillPx: decimal.NewFromInt(100)}
	sell := &fakeVenue{name: "coinbase", fillPx: decimal.NewFromInt(110)}
	engine := newTestEngine(t, buy, sell, 4)

	exec, err := engine.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCompleted, exec.Status)
	assert.True(t, exec.NetProfit.Equal(decimal.NewFromInt(5))) // (110-100)*1 - 5 fees
}

func TestExecuteRollsBackWhenSellLegFails(t *testing.T) {
	buy := &fakeVenue{name: "binance", fillPx: decimal.NewFromInt(100)}
	sell := &fakeVenue{name: "coinbase", failOrders: true}
	engine := newTestEngine(t, buy, sell, 4)

	exec, err := engine.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionRolledBack, exec.Status)
	assert.Contains(t, exec.FailureReason, "sell leg failed")
}

func TestExecuteFailsWhenBothLegsFail(t *testing.T) {
	buy := &fakeVenue{name: "binance", failOrders: true}
	sell := &fakeVenue{name: "coinbase", failOrders: true}
	engine := newTestEngine(t, buy, sell, 4)

	exec, err := engine.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionFailed, exec.Status)
}

func TestExecuteRejectsConcurrentSameKeyExecution(t *testing.T) {
	buy := &fakeVenue{name: "binance", fillPx: decimal.NewFromInt(100)}
	sell := &fakeVenue{name: "coinbase", fillPx: decimal.NewFromInt(110)}
	engine := newTestEngine(t, buy, sell, 4)

	engine.mu.Lock()
	engine.inFlight[executionKey(testOpportunity())] = true
	engine.mu.Unlock()

	_, err := engine.Execute(context.Background(), testOpportunity())
	assert.Error(t, err)
}

func TestExecutionKeyIsStableForSameTriple(t *testing.T) {
	a := executionKey(testOpportunity())
	b := executionKey(testOpportunity())
	assert.Equal(t, a, b)
}
