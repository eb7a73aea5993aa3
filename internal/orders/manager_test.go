package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type fakeCreds struct{}

func (fakeCreds) Get(context.Context, string) (connector.Credentials, error) {
	return connector.Credentials{}, nil
}

type fakeConnector struct {
	placeErr   error
	cancelErr  error
	statusErr  error
	nextStatus domain.Order
}

func (f *fakeConnector) Name() string                     { return "fake" }
func (f *fakeConnector) Connect(context.Context) error    { return nil }
func (f *fakeConnector) Disconnect(context.Context) error { return nil }
func (f *fakeConnector) IsConnected() bool                { return true }
func (f *fakeConnector) GetMarketData(context.Context, []string) (map[string]domain.Ticker, error) {
	return nil, nil
}
func (f *fakeConnector) GetTicker(context.Context, string) (domain.Ticker, error) {
	return domain.Ticker{}, nil
}
func (f *fakeConnector) GetOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (f *fakeConnector) GetTrades(context.Context, string, int) ([]domain.Ticker, error) {
	return nil, nil
}
func (f *fakeConnector) PlaceOrder(_ context.Context, req connector.PlaceOrderRequest) (domain.Order, error) {
	if f.placeErr != nil {
		return domain.Order{}, f.placeErr
	}
	return domain.Order{
		ID: req.ClientOrderID, VenueID: "venue-" + req.ClientOrderID, Symbol: req.Symbol,
		Side: req.Side, Type: req.Type, Qty: req.Qty, Px: req.Px,
		Status: domain.OrderStatusPlaced, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}, nil
}
func (f *fakeConnector) CancelOrder(context.Context, string) error { return f.cancelErr }
func (f *fakeConnector) GetOrderStatus(context.Context, string) (domain.Order, error) {
	if f.statusErr != nil {
		return domain.Order{}, f.statusErr
	}
	return f.nextStatus, nil
}
func (f *fakeConnector) GetPositions(context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakeConnector) GetBalances(context.Context) ([]connector.Balance, error) {
	return nil, nil
}
func (f *fakeConnector) GetHistoricalData(context.Context, string, connector.Timeframe, time.Time, time.Time) ([]domain.Ticker, error) {
	return nil, nil
}

func newTestManager(t *testing.T, conn *fakeConnector) *Manager {
	t.Helper()
	registry := connector.NewRegistry(logger.New("test"), fakeCreds{}, map[string]connector.Factory{
		"binance": func(connector.Credentials) (connector.Connector, error) { return conn, nil },
	})
	require.NoError(t, registry.ConnectAll(context.Background(), []string{"binance"})["binance"])
	return New(DefaultConfig(), registry, nil, logger.New("test"))
}

func validReq() connector.PlaceOrderRequest {
	return connector.PlaceOrderRequest{
		Symbol: "BTC/USDT", Side: domain.SideBuy, Type: domain.OrderTypeLimit,
		Qty: decimal.NewFromInt(1), Px: decimal.NewFromInt(50000),
	}
}

func TestPlaceOrderSucceeds(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	order, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)
	assert.Equal(t, "binance", order.Venue)
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)

	got, ok := m.GetOrder(order.ID)
	require.True(t, ok)
	assert.Equal(t, order.ID, got.ID)
}

func TestPlaceOrderRejectsInvalidRequest(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	req := validReq()
	req.Qty = decimal.Zero
	_, err := m.PlaceOrder(context.Background(), "binance", req)
	assert.Error(t, err)
}

func TestPlaceOrderRejectsLimitOrderWithoutPrice(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	req := validReq()
	req.Px = decimal.Zero
	_, err := m.PlaceOrder(context.Background(), "binance", req)
	assert.Error(t, err)
}

func TestPlaceOrderRejectsUnknownVenue(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	_, err := m.PlaceOrder(context.Background(), "okx", validReq())
	assert.Error(t, err)
}

func TestPlaceOrderRejectsWhenMaxPendingReached(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	m.cfg.MaxPendingOrders = 1

	_, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)

	_, err = m.PlaceOrder(context.Background(), "binance", validReq())
	assert.Error(t, err)
}

func TestCancelOrderUpdatesStatus(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	order, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)

	require.NoError(t, m.CancelOrder(context.Background(), order.ID))

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestCancelOrderRejectsUnknownID(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	assert.Error(t, m.CancelOrder(context.Background(), "nope"))
}

func TestAllFiltersByStatus(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	order, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)

	placed := m.All(domain.OrderStatusPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, order.ID, placed[0].ID)

	assert.Empty(t, m.All(domain.OrderStatusFilled))
}

func TestProcessPendingTimesOutStaleOrders(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	m.cfg.OrderTimeout = time.Millisecond

	order, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	m.processPending(context.Background())

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestRefreshStatusesPicksUpFill(t *testing.T) {
	conn := &fakeConnector{}
	m := newTestManager(t, conn)

	order, err := m.PlaceOrder(context.Background(), "binance", validReq())
	require.NoError(t, err)

	conn.nextStatus = order
	conn.nextStatus.Status = domain.OrderStatusFilled
	conn.nextStatus.FilledQty = order.Qty

	m.refreshStatuses(context.Background())

	got, _ := m.GetOrder(order.ID)
	assert.Equal(t, domain.OrderStatusFilled, got.Status)
}

func TestStartStopIsIdempotent(t *testing.T) {
	m := newTestManager(t, &fakeConnector{})
	m.Start(context.Background())
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}
