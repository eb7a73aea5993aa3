package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type fakeCreds struct {
	creds map[string]Credentials
	err   error
}

func (f fakeCreds) Get(_ context.Context, venue string) (Credentials, error) {
	if f.err != nil {
		return Credentials{}, f.err
	}
	return f.creds[venue], nil
}

type fakeConnector struct {
	name      string
	connected bool
	failConn  bool
}

func (f *fakeConnector) Name() string { return f.name }
func (f *fakeConnector) Connect(context.Context) error {
	if f.failConn {
		return assert.AnError
	}
	f.connected = true
	return nil
}
func (f *fakeConnector) Disconnect(context.Context) error { f.connected = false; return nil }
func (f *fakeConnector) IsConnected() bool                { return f.connected }

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
func (f *fakeConnector) PlaceOrder(context.Context, PlaceOrderRequest) (domain.Order, error) {
	return domain.Order{}, nil
}
func (f *fakeConnector) CancelOrder(context.Context, string) error { return nil }
func (f *fakeConnector) GetOrderStatus(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}
func (f *fakeConnector) GetPositions(context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakeConnector) GetBalances(context.Context) ([]Balance, error)          { return nil, nil }
func (f *fakeConnector) GetHistoricalData(context.Context, string, Timeframe, time.Time, time.Time) ([]domain.Ticker, error) {
	return nil, nil
}

func TestRegistryConnectAllTracksPerVenueResults(t *testing.T) {
	creds := fakeCreds{creds: map[string]Credentials{"binance": {Key: "k"}, "kraken": {Key: "k"}}}
	reg := NewRegistry(logger.New("test"), creds, map[string]Factory{
		"binance": func(Credentials) (Connector, error) { return &fakeConnector{name: "binance"}, nil },
		"kraken":  func(Credentials) (Connector, error) { return &fakeConnector{name: "kraken", failConn: true}, nil },
	})

	results := reg.ConnectAll(context.Background(), []string{"binance", "kraken"})
	require.NoError(t, results["binance"])
	require.Error(t, results["kraken"])

	assert.Equal(t, []string{"binance"}, reg.Connected())
}

func TestRegistryConnectAllReportsMissingFactory(t *testing.T) {
	reg := NewRegistry(logger.New("test"), fakeCreds{}, map[string]Factory{})
	results := reg.ConnectAll(context.Background(), []string{"unknown"})
	require.Error(t, results["unknown"])
}

func TestRegistryGetOrCreateCachesConnector(t *testing.T) {
	creds := fakeCreds{creds: map[string]Credentials{"binance": {Key: "k"}}}
	calls := 0
	reg := NewRegistry(logger.New("test"), creds, map[string]Factory{
		"binance": func(Credentials) (Connector, error) {
			calls++
			return &fakeConnector{name: "binance"}, nil
		},
	})

	_, err := reg.getOrCreate(context.Background(), "binance")
	require.NoError(t, err)
	_, err = reg.getOrCreate(context.Background(), "binance")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegistryPingReflectsConnectorState(t *testing.T) {
	creds := fakeCreds{creds: map[string]Credentials{"binance": {Key: "k"}}}
	reg := NewRegistry(logger.New("test"), creds, map[string]Factory{
		"binance": func(Credentials) (Connector, error) { return &fakeConnector{name: "binance", connected: true}, nil },
	})
	_, err := reg.getOrCreate(context.Background(), "binance")
	require.NoError(t, err)

	assert.True(t, reg.Ping(context.Background(), "binance"))
	assert.False(t, reg.Ping(context.Background(), "unknown"))
}

func TestSelectForArbitrageRanksByCompositeScore(t *testing.T) {
	top := SelectForArbitrage([]string{"binance", "kraken", "okx"}, 2)
	assert.Len(t, top, 2)
}

func TestSelectForArbitrageCapsAtAvailableVenues(t *testing.T) {
	top := SelectForArbitrage([]string{"binance"}, 5)
	assert.Len(t, top, 1)
}

func TestRegistryCircuitBreakerIsSharedPerVenue(t *testing.T) {
	reg := NewRegistry(logger.New("test"), fakeCreds{}, map[string]Factory{})
	a := reg.CircuitBreaker("binance")
	b := reg.CircuitBreaker("binance")
	c := reg.CircuitBreaker("kraken")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Contains(t, reg.BreakerMetrics(), "binance")
	assert.Contains(t, reg.BreakerMetrics(), "kraken")
}
