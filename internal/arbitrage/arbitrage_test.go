package arbitrage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/aggregator"
	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/source"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type fakeCreds struct{}

func (fakeCreds) Get(context.Context, string) (connector.Credentials, error) {
	return connector.Credentials{}, nil
}

type fakeConnector struct {
	name      string
	connected bool
	balances  []connector.Balance
}

func (f *fakeConnector) Name() string                  { return f.name }
func (f *fakeConnector) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeConnector) Disconnect(context.Context) error {
	f.connected = false
	return nil
}
func (f *fakeConnector) IsConnected() bool { return f.connected }
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
func (f *fakeConnector) PlaceOrder(context.Context, connector.PlaceOrderRequest) (domain.Order, error) {
	return domain.Order{}, nil
}
func (f *fakeConnector) CancelOrder(context.Context, string) error { return nil }
func (f *fakeConnector) GetOrderStatus(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}
func (f *fakeConnector) GetPositions(context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakeConnector) GetBalances(context.Context) ([]connector.Balance, error) {
	return f.balances, nil
}
func (f *fakeConnector) GetHistoricalData(context.Context, string, connector.Timeframe, time.Time, time.Time) ([]domain.Ticker, error) {
	return nil, nil
}

type alwaysSafe struct{}

func (alwaysSafe) IsOpportunitySafe(domain.Opportunity) (bool, string) { return true, "" }

type alwaysUnsafe struct{}

func (alwaysUnsafe) IsOpportunitySafe(domain.Opportunity) (bool, string) { return false, "blocked" }

type stubSource struct {
	name  string
	price float64
}

func (s stubSource) Name() string { return s.name }
func (s stubSource) GetMarketData(_ context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	for _, sym := range symbols {
		out[sym] = domain.Ticker{Symbol: sym, Last: decimal.NewFromFloat(s.price), Bid: decimal.NewFromFloat(s.price), Ask: decimal.NewFromFloat(s.price)}
	}
	return out, nil
}

func newTestEngine(t *testing.T, riskGate RiskGate) (*Engine, *connector.Registry) {
	t.Helper()
	registry := connector.NewRegistry(logger.New("test"), fakeCreds{}, map[string]connector.Factory{
		"binance": func(connector.Credentials) (connector.Connector, error) {
			return &fakeConnector{name: "binance", connected: true, balances: []connector.Balance{{Asset: "USDT", Free: decimal.NewFromInt(1000000)}}}, nil
		},
		"coinbase": func(connector.Credentials) (connector.Connector, error) {
			return &fakeConnector{name: "coinbase", connected: true, balances: []connector.Balance{{Asset: "BTC", Free: decimal.NewFromInt(100)}}}, nil
		},
	})
	results := registry.ConnectAll(context.Background(), []string{"binance", "coinbase"})
	for venue, err := range results {
		require.NoError(t, err, venue)
	}

	cfg := DefaultConfig([]string{"BTC/USDT"})
	cfg.MinProfit = decimal.NewFromFloat(0.01)
	agg := aggregator.New(registry, source.NewRegistry(logger.New("test")), nil, logger.New("test"))
	engine := New(cfg, agg, registry, riskGate, nil, logger.New("test"))
	return engine, registry
}

func TestBuildOpportunityRejectsUnconnectedVenue(t *testing.T) {
	engine, _ := newTestEngine(t, alwaysSafe{})
	candidate := aggregator.SpreadCandidate{Symbol: "BTC/USDT", MinSource: "binance", MaxSource: "kraken", MinPrice: 100, MaxPrice: 101, SpreadPct: 0.01, Confidence: 0.9}
	_, ok := engine.buildOpportunity(context.Background(), candidate)
	assert.False(t, ok)
}

func TestBuildOpportunityProducesProfitableOpportunity(t *testing.T) {
	engine, _ := newTestEngine(t, alwaysSafe{})
	candidate := aggregator.SpreadCandidate{Symbol: "BTC/USDT", MinSource: "binance", MaxSource: "coinbase", MinPrice: 100, MaxPrice: 110, SpreadPct: 0.1, Confidence: 0.9}
	opp, ok := engine.buildOpportunity(context.Background(), candidate)
	require.True(t, ok)
	assert.Equal(t, "BTC/USDT", opp.Symbol)
	assert.True(t, opp.NetProfit.IsPositive())
	assert.True(t, opp.TradableSize.IsPositive())
}

func TestBuildOpportunityRejectsBelowMinProfit(t *testing.T) {
	engine, _ := newTestEngine(t, alwaysSafe{})
	engine.cfg.MinProfit = decimal.NewFromFloat(1_000_000)
	candidate := aggregator.SpreadCandidate{Symbol: "BTC/USDT", MinSource: "binance", MaxSource: "coinbase", MinPrice: 100, MaxPrice: 101, SpreadPct: 0.01, Confidence: 0.9}
	_, ok := engine.buildOpportunity(context.Background(), candidate)
	assert.False(t, ok)
}

func TestSplitSymbol(t *testing.T) {
	base, quote := splitSymbol("BTC/USDT")
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)
}

func TestSplitSymbolNoSeparator(t *testing.T) {
	base, quote := splitSymbol("BTCUSDT")
	assert.Equal(t, "BTCUSDT", base)
	assert.Empty(t, quote)
}

func TestFindBalanceReturnsZeroWhenAbsent(t *testing.T) {
	assert.True(t, findBalance(nil, "BTC").IsZero())
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestScanOnceSkipsRiskRejectedOpportunities(t *testing.T) {
	_, registry := newTestEngine(t, alwaysSafe{})
	sources := source.NewRegistry(logger.New("test"),
		stubSource{name: "binance", price: 100},
		stubSource{name: "coinbase", price: 110},
	)
	agg := aggregator.New(registry, sources, nil, logger.New("test"))

	cfg := DefaultConfig([]string{"BTC/USDT"})
	cfg.MinSpreadPct = 0.001
	cfg.MinProfit = decimal.NewFromFloat(0.01)
	engine := New(cfg, agg, registry, alwaysUnsafe{}, nil, logger.New("test"))

	err := engine.scanOnce(context.Background())
	assert.NoError(t, err)
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []domain.Opportunity
	done  chan struct{}
}

func (f *fakeExecutor) Execute(_ context.Context, opp domain.Opportunity) (domain.Execution, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opp)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return domain.Execution{Status: domain.ExecutionCompleted, NetProfit: opp.NetProfit}, nil
}

func TestScanOnceDispatchesAcceptedOpportunityToExecutor(t *testing.T) {
	_, registry := newTestEngine(t, alwaysSafe{})
	sources := source.NewRegistry(logger.New("test"),
		stubSource{name: "binance", price: 100},
		stubSource{name: "coinbase", price: 110},
	)
	agg := aggregator.New(registry, sources, nil, logger.New("test"))

	cfg := DefaultConfig([]string{"BTC/USDT"})
	cfg.MinSpreadPct = 0.001
	cfg.MinProfit = decimal.NewFromFloat(0.01)
	engine := New(cfg, agg, registry, alwaysSafe{}, nil, logger.New("test"))

	executor := &fakeExecutor{done: make(chan struct{}, 1)}
	engine.SetExecutor(executor)

	require.NoError(t, engine.scanOnce(context.Background()))

	select {
	case <-executor.done:
	case <-time.After(time.Second):
		t.Fatal("executor was never invoked")
	}

	executor.mu.Lock()
	defer executor.mu.Unlock()
	require.Len(t, executor.calls, 1)
	assert.Equal(t, "BTC/USDT", executor.calls[0].Symbol)
}

func TestEngineStopEndsRunLoop(t *testing.T) {
	engine, _ := newTestEngine(t, alwaysSafe{})
	engine.cfg.ScanInterval = time.Millisecond
	done := make(chan struct{})
	go func() {
		engine.Run(context.Background())
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	engine.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}
