// Package postgres provides a durable audit trail for orders and
// executions, persisted alongside (not instead of) the event bus's
// orders.* and arbitrage.executions streams. It is read by nothing in
// the hot path; its only consumer is after-the-fact reporting and
// compliance review.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// OrderRecorder persists orders and executions for audit/reporting.
type OrderRecorder struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewOrderRecorder opens a PostgreSQL connection pool and returns an
// OrderRecorder. Callers own the returned *sqlx.DB's lifetime via Close.
func NewOrderRecorder(dsn string, log *logger.Logger) (*OrderRecorder, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &OrderRecorder{db: db, logger: log.Named("order-recorder")}, nil
}

func (r *OrderRecorder) Close() error {
	return r.db.Close()
}

// RecordOrder upserts an order's current state, so repeated calls for the
// same order record its latest status. Outside its integration test,
// nothing in this module calls it.
func (r *OrderRecorder) RecordOrder(ctx context.Context, o domain.Order) error {
	query := `
		INSERT INTO orders (
			id, venue_id, symbol, side, type, qty, px, stop_px, filled_qty, avg_px,
			status, venue, execution_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO UPDATE SET
			venue_id = EXCLUDED.venue_id,
			filled_qty = EXCLUDED.filled_qty,
			avg_px = EXCLUDED.avg_px,
			status = EXCLUDED.status,
			execution_id = EXCLUDED.execution_id,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.VenueID, o.Symbol, o.Side, o.Type, o.Qty, o.Px, o.StopPx, o.FilledQty, o.AvgPx,
		o.Status, o.Venue, o.ExecutionID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("recording order failed - id: %s, err: %v", o.ID, err)
		return fmt.Errorf("recording order %s: %w", o.ID, err)
	}
	return nil
}

// RecordExecution upserts an execution's current state machine snapshot.
func (r *OrderRecorder) RecordExecution(ctx context.Context, e domain.Execution) error {
	query := `
		INSERT INTO executions (
			id, buy_order_id, sell_order_id, status, net_profit, fees_paid,
			elapsed_ms, failure_reason, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			net_profit = EXCLUDED.net_profit,
			fees_paid = EXCLUDED.fees_paid,
			elapsed_ms = EXCLUDED.elapsed_ms,
			failure_reason = EXCLUDED.failure_reason
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.BuyOrderID, e.SellOrderID, e.Status, e.NetProfit, e.FeesPaid,
		e.Elapsed.Milliseconds(), e.FailureReason, e.Timestamp,
	)
	if err != nil {
		r.logger.Error("recording execution failed - id: %s, err: %v", e.ID, err)
		return fmt.Errorf("recording execution %s: %w", e.ID, err)
	}
	return nil
}

// GetOrder returns the persisted state of a single order by id.
func (r *OrderRecorder) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var row orderRow
	query := `
		SELECT id, venue_id, symbol, side, type, qty, px, stop_px, filled_qty, avg_px,
			status, venue, execution_id, created_at, updated_at
		FROM orders WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return domain.Order{}, fmt.Errorf("fetching order %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListOrdersBySymbol returns the most recent orders for a symbol, newest first.
func (r *OrderRecorder) ListOrdersBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Order, error) {
	var rows []orderRow
	query := `
		SELECT id, venue_id, symbol, side, type, qty, px, stop_px, filled_qty, avg_px,
			status, venue, execution_id, created_at, updated_at
		FROM orders WHERE symbol = $1 ORDER BY created_at DESC LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, symbol, limit); err != nil {
		return nil, fmt.Errorf("listing orders for %s: %w", symbol, err)
	}
	orders := make([]domain.Order, len(rows))
	for i, row := range rows {
		orders[i] = row.toDomain()
	}
	return orders, nil
}

// orderRow mirrors the orders table with explicit db tags; domain.Order
// carries json tags for wire encoding, not column names, so scanning
// goes through this intermediate shape rather than the domain type
// directly.
type orderRow struct {
	ID          string          `db:"id"`
	VenueID     string          `db:"venue_id"`
	Symbol      string          `db:"symbol"`
	Side        string          `db:"side"`
	Type        string          `db:"type"`
	Qty         decimal.Decimal `db:"qty"`
	Px          decimal.Decimal `db:"px"`
	StopPx      decimal.Decimal `db:"stop_px"`
	FilledQty   decimal.Decimal `db:"filled_qty"`
	AvgPx       decimal.Decimal `db:"avg_px"`
	Status      string          `db:"status"`
	Venue       string          `db:"venue"`
	ExecutionID string          `db:"execution_id"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:          row.ID,
		VenueID:     row.VenueID,
		Symbol:      row.Symbol,
		Side:        domain.Side(row.Side),
		Type:        domain.OrderType(row.Type),
		Qty:         row.Qty,
		Px:          row.Px,
		StopPx:      row.StopPx,
		FilledQty:   row.FilledQty,
		AvgPx:       row.AvgPx,
		Status:      domain.OrderStatus(row.Status),
		Venue:       row.Venue,
		ExecutionID: row.ExecutionID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
