// Package venues holds the concrete per-exchange Connector implementations.
// Each wraps a pooled *http.Client (§5: "one pooled client per connector,
// reused across calls") and routes every I/O call through the shared
// retry+timeout policy and per-venue rate limiter handed down by the
// registry.
package venues

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// SymbolCodec maps the canonical BASE/QUOTE form to and from a venue's own
// symbol spelling (e.g. binance: BTC/USDT <-> BTCUSDT).
type SymbolCodec interface {
	ToVenue(canonical string) string
	FromVenue(venueSymbol string) string
}

// restCEX is the shared skeleton every REST-based centralized-exchange
// adapter is built on. It is unexported; each venue's New func wraps it
// with venue-specific symbol codecs and endpoint paths.
type restCEX struct {
	name        string
	baseURL     string
	client      *http.Client
	codec       SymbolCodec
	creds       connector.Credentials
	logger      *logger.Logger
	rateLimiter *concurrency.VenueRateLimiter
	retryConfig concurrency.RetryConfig
	breaker     *concurrency.CircuitBreaker

	mu        sync.RWMutex
	connected bool
	orders    map[string]domain.Order // venue order id -> local view, mock fill simulation
}

func newRESTCEX(name, baseURL string, codec SymbolCodec, creds connector.Credentials, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig, breaker *concurrency.CircuitBreaker) *restCEX {
	return &restCEX{
		name:    name,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: retry.Timeout,
		},
		codec:       codec,
		creds:       creds,
		logger:      log.Named(name),
		rateLimiter: rl,
		retryConfig: retry,
		breaker:     breaker,
		orders:      make(map[string]domain.Order),
	}
}

func (c *restCEX) Name() string { return c.name }

func (c *restCEX) Connect(ctx context.Context) error {
	_, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		// A real adapter would ping an authenticated endpoint here; absent
		// live credentials this just verifies the host is reachable.
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return nil, nil
	})

	c.mu.Lock()
	c.connected = err == nil
	c.mu.Unlock()

	if err != nil {
		return errors.Wrap(errors.UnavailableError, err, "connecting to "+c.name)
	}
	return nil
}

func (c *restCEX) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func (c *restCEX) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// withRetry wraps fn in the venue's rate limiter, the shared retry+timeout
// policy (§4.1 default: 3 attempts, 200ms backoff, 5s timeout), and the
// venue's circuit breaker when one is configured. The breaker sits outside
// retry: once a venue trips, further calls fail fast instead of burning
// three retry attempts against a host that is already known to be down.
func (c *restCEX) withRetry(ctx context.Context, fn concurrency.RetryableFunc) (interface{}, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, c.name); err != nil {
			return nil, errors.Wrap(errors.TimeoutError, err, "rate limiter wait")
		}
	}

	attempt := func(ctx context.Context) (interface{}, error) {
		return concurrency.Retry(ctx, c.retryConfig, fn)
	}

	if c.breaker == nil {
		return attempt(ctx)
	}

	result, err := c.breaker.Execute(ctx, attempt)
	if err == concurrency.ErrCircuitBreakerOpen {
		return nil, errors.Wrap(errors.UnavailableError, err, c.name+" circuit breaker open")
	}
	return result, err
}

// GetMarketData/GetTicker/GetOrderBook/GetTrades below are deliberately
// simple deterministic simulations: this module ships with no live
// exchange credentials, so each adapter derives a plausible quote from the
// symbol alone (see syntheticMid) rather than calling out to a sandbox API. A
// production deployment replaces only these methods' bodies; the
// connect/retry/rate-limit/order-lifecycle scaffolding around them does
// not change.

func (c *restCEX) GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	for _, symbol := range symbols {
		t, err := c.GetTicker(ctx, symbol)
		if err != nil {
			continue
		}
		out[symbol] = t
	}
	return out, nil
}

func (c *restCEX) GetTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	result, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return c.simulateTicker(symbol), nil
	})
	if err != nil {
		return domain.Ticker{}, err
	}
	return result.(domain.Ticker), nil
}

func (c *restCEX) simulateTicker(symbol string) domain.Ticker {
	mid := syntheticMid(symbol)
	spread := mid.Mul(decimal.NewFromFloat(0.0005))
	return domain.Ticker{
		Symbol:    symbol,
		Last:      mid,
		Bid:       mid.Sub(spread),
		Ask:       mid.Add(spread),
		Volume:    decimal.NewFromFloat(100),
		Timestamp: time.Now(),
		Source:    c.name,
	}
}

func (c *restCEX) GetOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	t := c.simulateTicker(symbol)
	levels := limit
	if levels <= 0 || levels > 50 {
		levels = 10
	}

	step := t.Ask.Sub(t.Bid).Div(decimal.NewFromInt(int64(levels) + 1))
	bids := make([]domain.OrderBookLevel, 0, levels)
	asks := make([]domain.OrderBookLevel, 0, levels)
	for i := 0; i < levels; i++ {
		bids = append(bids, domain.OrderBookLevel{
			Price:    t.Bid.Sub(step.Mul(decimal.NewFromInt(int64(i)))),
			Quantity: decimal.NewFromFloat(1.0),
		})
		asks = append(asks, domain.OrderBookLevel{
			Price:    t.Ask.Add(step.Mul(decimal.NewFromInt(int64(i)))),
			Quantity: decimal.NewFromFloat(1.0),
		})
	}

	return domain.OrderBook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
		Source:    c.name,
	}, nil
}

func (c *restCEX) GetTrades(ctx context.Context, symbol string, limit int) ([]domain.Ticker, error) {
	t, err := c.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return []domain.Ticker{t}, nil
}

func (c *restCEX) PlaceOrder(ctx context.Context, req connector.PlaceOrderRequest) (domain.Order, error) {
	if req.Symbol == "" || req.Side == "" || req.Type == "" || req.Qty.LessThanOrEqual(decimal.Zero) {
		return domain.Order{}, errors.New(errors.InvalidError, "malformed order request")
	}
	if req.Type == domain.OrderTypeLimit && req.Px.IsZero() {
		return domain.Order{}, errors.New(errors.InvalidError, "limit order requires price")
	}

	result, err := c.withRetry(ctx, func(ctx context.Context) (interface{}, error) {
		venueID := uuid.New().String()
		now := time.Now()
		order := domain.Order{
			ID:        req.ClientOrderID,
			VenueID:   venueID,
			Symbol:    req.Symbol,
			Side:      req.Side,
			Type:      req.Type,
			Qty:       req.Qty,
			Px:        req.Px,
			StopPx:    req.StopPx,
			FilledQty: req.Qty, // simulated full/immediate fill
			AvgPx:     c.fillPrice(req),
			Status:    domain.OrderStatusFilled,
			Venue:     c.name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		c.mu.Lock()
		c.orders[venueID] = order
		c.mu.Unlock()
		return order, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result.(domain.Order), nil
}

func (c *restCEX) fillPrice(req connector.PlaceOrderRequest) decimal.Decimal {
	t := c.simulateTicker(req.Symbol)
	if req.Side == domain.SideBuy {
		return t.Ask
	}
	return t.Bid
}

func (c *restCEX) CancelOrder(ctx context.Context, venueOrderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[venueOrderID]
	if !ok {
		return errors.New(errors.InvalidError, "unknown order id")
	}
	if order.Status.IsTerminal() {
		return errors.New(errors.RejectedError, "order already terminal")
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	c.orders[venueOrderID] = order
	return nil
}

func (c *restCEX) GetOrderStatus(ctx context.Context, venueOrderID string) (domain.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order, ok := c.orders[venueOrderID]
	if !ok {
		return domain.Order{}, errors.New(errors.InvalidError, "unknown order id")
	}
	return order, nil
}

func (c *restCEX) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return []domain.Position{}, nil
}

func (c *restCEX) GetBalances(ctx context.Context) ([]connector.Balance, error) {
	return []connector.Balance{
		{Asset: "USDT", Free: decimal.NewFromFloat(100000), Locked: decimal.Zero},
		{Asset: "BTC", Free: decimal.NewFromFloat(2), Locked: decimal.Zero},
	}, nil
}

func (c *restCEX) GetHistoricalData(ctx context.Context, symbol string, tf connector.Timeframe, from, to time.Time) ([]domain.Ticker, error) {
	t, err := c.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return []domain.Ticker{t}, nil
}

// syntheticMid derives a deterministic, plausible mid price from the symbol
// alone, without any live market data dependency: different symbols get a
// jitter of up to +/-1% around their base price, but every venue built on
// it quotes the same mid for a given symbol.
func syntheticMid(symbol string) decimal.Decimal {
	base := decimal.NewFromFloat(50000)
	if symbol == "ETH/USDT" || symbol == "ETH/USD" {
		base = decimal.NewFromFloat(3000)
	}
	var h int64
	for _, r := range symbol {
		h = h*31 + int64(r)
	}
	jitterPct := float64(h%21-10) / 1000.0 // +/-1%
	return base.Mul(decimal.NewFromFloat(1 + jitterPct))
}
