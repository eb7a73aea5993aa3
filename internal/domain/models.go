// Package domain holds the core data model shared across the platform:
// tickers and order books coming off connectors, the aggregator's
// reconciled quotes, arbitrage opportunities, orders, executions,
// positions, and risk state.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the venue-level order type.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOPLIMIT"
)

// OrderStatus tracks an Order through its lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status is a terminal state (§3 invariant:
// a terminal order's status is never re-opened).
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// ExecutionStatus tracks an Execution's paired-order state machine (§4.8).
type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "PENDING"
	ExecutionPlacing    ExecutionStatus = "PLACING"
	ExecutionPartial    ExecutionStatus = "PARTIAL"
	ExecutionCompleted  ExecutionStatus = "COMPLETED"
	ExecutionFailed     ExecutionStatus = "FAILED"
	ExecutionRolledBack ExecutionStatus = "ROLLED_BACK"
)

// IsTerminal reports whether the execution has reached a final state.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionRolledBack:
		return true
	default:
		return false
	}
}

// PositionSide is the directional stance of a Position.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// Ticker is the freshest known price for a symbol from one source.
// Created per poll by a Connector or Source; immutable once constructed.
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Last      decimal.Decimal `json:"last"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// OrderBookLevel is one price/quantity rung of an OrderBook.
type OrderBookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBook is a per-poll, immutable snapshot of bids/asks for a symbol.
type OrderBook struct {
	Symbol    string           `json:"symbol"`
	Bids      []OrderBookLevel `json:"bids"` // sorted descending by price
	Asks      []OrderBookLevel `json:"asks"` // sorted ascending by price
	Timestamp time.Time        `json:"timestamp"`
	Source    string           `json:"source"`
}

// AggregatedQuote is the Aggregator's reconciled, per-symbol snapshot.
// Invariant: bid <= mid <= ask, and SourcesUsed is never empty.
type AggregatedQuote struct {
	Symbol      string          `json:"symbol"`
	Mid         decimal.Decimal `json:"mid"`
	Bid         decimal.Decimal `json:"bid"`
	Ask         decimal.Decimal `json:"ask"`
	Spread      decimal.Decimal `json:"spread"`
	Volume      decimal.Decimal `json:"volume"`
	SourcesUsed []string        `json:"sources_used"`
	Confidence  float64         `json:"confidence"`
	Timestamp   time.Time       `json:"timestamp"`
	FromCache   bool            `json:"from_cache"`
}

// Opportunity is a scored, scanned cross-venue price dislocation.
// Produced by the Arbitrage Engine; consumed by the Execution Engine then discarded.
type Opportunity struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	BuyVenue        string          `json:"buy_venue"`
	SellVenue       string          `json:"sell_venue"`
	BuyPx           decimal.Decimal `json:"buy_px"`
	SellPx          decimal.Decimal `json:"sell_px"`
	Spread          decimal.Decimal `json:"spread"`
	SpreadPct       decimal.Decimal `json:"spread_pct"`
	TradableSize    decimal.Decimal `json:"tradable_size"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	Fees            decimal.Decimal `json:"fees"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	RiskScore       float64         `json:"risk_score"`
	Confidence      float64         `json:"confidence"`
	EstExecSeconds  float64         `json:"est_exec_seconds"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Order is a single-venue order. Created on submit, mutated only by the
// Order Manager after venue feedback; terminal on FILLED/CANCELLED/REJECTED.
type Order struct {
	ID          string          `json:"id"`       // client-assigned id
	VenueID     string          `json:"venue_id"` // venue-assigned id, populated on placement
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Type        OrderType       `json:"type"`
	Qty         decimal.Decimal `json:"qty"`
	Px          decimal.Decimal `json:"px,omitempty"`
	StopPx      decimal.Decimal `json:"stop_px,omitempty"`
	FilledQty   decimal.Decimal `json:"filled_qty"`
	AvgPx       decimal.Decimal `json:"avg_px"`
	Status      OrderStatus     `json:"status"`
	Venue       string          `json:"venue"`
	ExecutionID string          `json:"execution_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Execution is a coordinated pair of Orders implementing one arbitrage
// attempt and its state machine (§4.8). A state machine; terminal on
// COMPLETED/FAILED/ROLLED_BACK.
type Execution struct {
	ID            string          `json:"id"`
	Opportunity   Opportunity     `json:"opportunity"`
	BuyOrderID    string          `json:"buy_order_id"`
	SellOrderID   string          `json:"sell_order_id"`
	Status        ExecutionStatus `json:"status"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	FeesPaid      decimal.Decimal `json:"fees_paid"`
	Elapsed       time.Duration   `json:"elapsed"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Position is opened by position sizing, mutated by price updates, closed
// by an exit signal or stop.
type Position struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Side          PositionSide    `json:"side"`
	Size          decimal.Decimal `json:"size"`
	EntryPx       decimal.Decimal `json:"entry_px"`
	CurrentPx     decimal.Decimal `json:"current_px"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
	StopPx        decimal.Decimal `json:"stop_px,omitempty"`
	TakePx        decimal.Decimal `json:"take_px,omitempty"`
	OpenedAt      time.Time       `json:"opened_at"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

// RiskState is process-wide accounting, mutated only under the Risk
// Manager's lock (§3 invariant).
type RiskState struct {
	DailyPnL           decimal.Decimal `json:"daily_pnl"`
	DailyTrades        int             `json:"daily_trades"`
	OpenPositionsValue decimal.Decimal `json:"open_positions_value"`
	WinRate            float64         `json:"win_rate"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
	LastReset          time.Time       `json:"last_reset"`
}
