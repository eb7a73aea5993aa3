package venues

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/blockchain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// pool is the reserve/TVL snapshot a synthetic order book is built from.
// Whether this book should be treated as liquid downstream was an open
// question (spec.md §9); DESIGN.md records the decision: no, the
// arbitrage engine's risk score penalizes it.
type pool struct {
	baseReserve  decimal.Decimal
	quoteReserve decimal.Decimal
}

// Uniswap is the DEX connector. It has no order book server to poll and no
// account to authenticate; instead it derives price and depth from pool
// reserves via the constant-product formula, per
// pkg/blockchain.EthereumClient / internal/defi's UniswapClient in the
// teacher.
type Uniswap struct {
	ethClient   blockchain.EthereumClient
	rpcURL      string
	routerAddr  string
	logger      *logger.Logger
	rateLimiter *concurrency.VenueRateLimiter
	retryConfig concurrency.RetryConfig

	mu        sync.RWMutex
	connected bool
	pools     map[string]pool // symbol -> synthetic reserves
	orders    map[string]domain.Order
}

// NewUniswap builds the Uniswap DEX connector over ethClient (usually a
// blockchain.NewMockEthereumClient in environments with no live RPC).
// rpcURL and routerAddr come from config.Web3Config's EthereumConfig and
// DeFiConfig (UniswapV3Router) respectively.
func NewUniswap(ethClient blockchain.EthereumClient, rpcURL, routerAddr string, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig) connector.Connector {
	return &Uniswap{
		ethClient:   ethClient,
		rpcURL:      rpcURL,
		routerAddr:  routerAddr,
		logger:      log.Named("uniswap"),
		rateLimiter: rl,
		retryConfig: retry,
		pools:       make(map[string]pool),
		orders:      make(map[string]domain.Order),
	}
}

func (u *Uniswap) Name() string { return "uniswap" }

func (u *Uniswap) Connect(ctx context.Context) error {
	if err := u.ethClient.Connect(ctx, u.rpcURL); err != nil {
		return errors.Wrap(errors.UnavailableError, err, "connecting uniswap ethereum client")
	}
	u.logger.Info("uniswap connected - router: %s", u.routerAddr)
	u.mu.Lock()
	u.connected = true
	u.mu.Unlock()
	return nil
}

func (u *Uniswap) Disconnect(ctx context.Context) error {
	u.mu.Lock()
	u.connected = false
	u.mu.Unlock()
	return u.ethClient.Close()
}

func (u *Uniswap) IsConnected() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.connected && u.ethClient.IsConnected()
}

// reservesFor returns (and lazily seeds) synthetic pool reserves for a
// symbol so the constant-product price stays stable across calls within a
// process lifetime.
func (u *Uniswap) reservesFor(symbol string) pool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if p, ok := u.pools[symbol]; ok {
		return p
	}

	mid := syntheticMid(symbol)
	quoteReserve := decimal.NewFromFloat(5_000_000) // TVL-derived synthetic depth
	baseReserve := quoteReserve.Div(mid)
	p := pool{baseReserve: baseReserve, quoteReserve: quoteReserve}
	u.pools[symbol] = p
	return p
}

func (u *Uniswap) spotPrice(symbol string) decimal.Decimal {
	p := u.reservesFor(symbol)
	if p.baseReserve.IsZero() {
		return decimal.Zero
	}
	return p.quoteReserve.Div(p.baseReserve)
}

func (u *Uniswap) GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	for _, s := range symbols {
		t, err := u.GetTicker(ctx, s)
		if err != nil {
			continue
		}
		out[s] = t
	}
	return out, nil
}

func (u *Uniswap) GetTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	if u.rateLimiter != nil {
		if err := u.rateLimiter.Wait(ctx, u.Name()); err != nil {
			return domain.Ticker{}, errors.Wrap(errors.TimeoutError, err, "rate limiter wait")
		}
	}

	result, err := concurrency.Retry(ctx, u.retryConfig, func(ctx context.Context) (interface{}, error) {
		mid := u.spotPrice(symbol)
		// DEX pools quote a single spot price with slippage-driven spread,
		// not an independent bid/ask — approximate a tight synthetic spread.
		spread := mid.Mul(decimal.NewFromFloat(0.001))
		return domain.Ticker{
			Symbol:    symbol,
			Last:      mid,
			Bid:       mid.Sub(spread),
			Ask:       mid.Add(spread),
			Volume:    decimal.NewFromFloat(10),
			Timestamp: time.Now(),
			Source:    u.Name(),
		}, nil
	})
	if err != nil {
		return domain.Ticker{}, err
	}
	return result.(domain.Ticker), nil
}

// GetOrderBook builds a synthetic book from the constant-product curve:
// each rung trades a fixed base increment against the pool, and the
// resulting price impact becomes that rung's price (§9 — "the DEX adapter
// fabricates a synthetic order book from TVL/price").
func (u *Uniswap) GetOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	p := u.reservesFor(symbol)
	levels := limit
	if levels <= 0 || levels > 20 {
		levels = 10
	}

	k := p.baseReserve.Mul(p.quoteReserve)
	increment := p.baseReserve.Div(decimal.NewFromInt(1000)) // 0.1% of reserve per rung

	bids := make([]domain.OrderBookLevel, 0, levels)
	asks := make([]domain.OrderBookLevel, 0, levels)
	for i := 1; i <= levels; i++ {
		qty := increment.Mul(decimal.NewFromInt(int64(i)))

		// Taker sells qty base into the pool (bid side): quote received per unit
		newBaseBid := p.baseReserve.Add(qty)
		newQuoteBid := k.Div(newBaseBid)
		bidPrice := p.quoteReserve.Sub(newQuoteBid).Div(qty)
		bids = append(bids, domain.OrderBookLevel{Price: bidPrice, Quantity: qty})

		// Taker buys qty base out of the pool (ask side): quote paid per unit
		if qty.LessThan(p.baseReserve) {
			newBaseAsk := p.baseReserve.Sub(qty)
			newQuoteAsk := k.Div(newBaseAsk)
			askPrice := newQuoteAsk.Sub(p.quoteReserve).Div(qty)
			asks = append(asks, domain.OrderBookLevel{Price: askPrice, Quantity: qty})
		}
	}

	return domain.OrderBook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
		Source:    u.Name(),
	}, nil
}

func (u *Uniswap) GetTrades(ctx context.Context, symbol string, limit int) ([]domain.Ticker, error) {
	t, err := u.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return []domain.Ticker{t}, nil
}

func (u *Uniswap) PlaceOrder(ctx context.Context, req connector.PlaceOrderRequest) (domain.Order, error) {
	if req.Symbol == "" || req.Side == "" || req.Qty.LessThanOrEqual(decimal.Zero) {
		return domain.Order{}, errors.New(errors.InvalidError, "malformed order request")
	}
	if req.Type != domain.OrderTypeMarket {
		return domain.Order{}, errors.New(errors.InvalidError, "uniswap connector only supports market swaps")
	}

	venueID := uuid.New().String()
	mid := u.spotPrice(req.Symbol)
	now := time.Now()
	order := domain.Order{
		ID:        req.ClientOrderID,
		VenueID:   venueID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Qty:       req.Qty,
		FilledQty: req.Qty,
		AvgPx:     mid,
		Status:    domain.OrderStatusFilled,
		Venue:     u.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	u.mu.Lock()
	u.orders[venueID] = order
	u.mu.Unlock()
	return order, nil
}

func (u *Uniswap) CancelOrder(ctx context.Context, venueOrderID string) error {
	// On-chain swaps settle atomically; there is nothing pending to cancel.
	return errors.New(errors.RejectedError, "uniswap swaps are not cancellable once submitted")
}

func (u *Uniswap) GetOrderStatus(ctx context.Context, venueOrderID string) (domain.Order, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	order, ok := u.orders[venueOrderID]
	if !ok {
		return domain.Order{}, errors.New(errors.InvalidError, "unknown order id")
	}
	return order, nil
}

func (u *Uniswap) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return []domain.Position{}, nil
}

func (u *Uniswap) GetBalances(ctx context.Context) ([]connector.Balance, error) {
	bal, err := u.ethClient.GetBalance(ctx, common.Address{})
	if err != nil {
		bal = big.NewInt(0)
	}
	return []connector.Balance{
		{Asset: "ETH", Free: weiToEther(bal), Locked: decimal.Zero},
	}, nil
}

func (u *Uniswap) GetHistoricalData(ctx context.Context, symbol string, tf connector.Timeframe, from, to time.Time) ([]domain.Ticker, error) {
	t, err := u.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return []domain.Ticker{t}, nil
}

func weiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
