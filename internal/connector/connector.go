// Package connector defines the uniform venue adapter contract (§4.1) and
// the registry that owns the live set of connectors (§4.2).
package connector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/domain"
)

// Timeframe is a historical-data bucket size, e.g. "1m", "1h", "1d".
type Timeframe string

// Balance is a single asset's free/locked amounts on a venue.
type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// PlaceOrderRequest carries a caller-assigned client id; placeOrder is not
// idempotent at the venue, so the adapter must accept that id and surface
// the venue-assigned id on the returned Order (§4.1 contract).
type PlaceOrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          domain.Side
	Type          domain.OrderType
	Qty           decimal.Decimal
	Px            decimal.Decimal
	StopPx        decimal.Decimal
}

// Connector is the uniform, polymorphic adapter over one exchange or DEX.
// All variants (spot, futures, margin, DEX subgraph) satisfy this same
// capability set (§4.1).
type Connector interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error)
	GetTicker(ctx context.Context, symbol string) (domain.Ticker, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error)
	GetTrades(ctx context.Context, symbol string, limit int) ([]domain.Ticker, error)

	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.Order, error)
	CancelOrder(ctx context.Context, venueOrderID string) error
	GetOrderStatus(ctx context.Context, venueOrderID string) (domain.Order, error)

	GetPositions(ctx context.Context) ([]domain.Position, error)
	GetBalances(ctx context.Context) ([]Balance, error)
	GetHistoricalData(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]domain.Ticker, error)
}
