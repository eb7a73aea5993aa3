// Package orders coordinates order placement, status polling, timeout
// handling, and cleanup across venue connectors (§4.7). It is the only
// component that mutates an Order after it has been submitted.
package orders

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/metrics"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Config tunes the manager; defaults mirror order_manager.py's
// OrderManagerConfig.
type Config struct {
	MaxPendingOrders int
	OrderTimeout     time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	MonitorInterval  time.Duration
	CleanupInterval  time.Duration
	CleanupCutoff    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPendingOrders: 100,
		OrderTimeout:     30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		MonitorInterval:  100 * time.Millisecond,
		CleanupInterval:  5 * time.Minute,
		CleanupCutoff:    time.Hour,
	}
}

// Manager places orders on the correct venue connector, polls status, and
// retires old terminal orders.
type Manager struct {
	cfg      Config
	registry *connector.Registry
	bus      *eventbus.Bus
	logger   *logger.Logger

	mu      sync.RWMutex
	orders  map[string]domain.Order
	counter uint64

	stopCh    chan struct{}
	isRunning int32
}

func New(cfg Config, registry *connector.Registry, bus *eventbus.Bus, log *logger.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		logger:   log.Named("orders"),
		orders:   make(map[string]domain.Order),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the monitoring and cleanup loops. Idempotent.
func (m *Manager) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&m.isRunning, 0, 1) {
		return
	}
	go m.monitoringLoop(ctx)
	go m.cleanupLoop(ctx)
}

// Stop ends both background loops.
func (m *Manager) Stop() {
	if atomic.CompareAndSwapInt32(&m.isRunning, 1, 0) {
		close(m.stopCh)
	}
}

// nextOrderID generates the ORD_{timestamp_ms}_{counter} client id scheme.
func (m *Manager) nextOrderID() string {
	n := atomic.AddUint64(&m.counter, 1)
	ts := time.Now().UnixMilli()
	return "ORD_" + itoa(ts) + "_" + itoa(int64(n))
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PlaceOrder validates req, places it on venue, and records it.
func (m *Manager) PlaceOrder(ctx context.Context, venue string, req connector.PlaceOrderRequest) (domain.Order, error) {
	if err := validate(req); err != nil {
		metrics.OrdersRejectedTotal.WithLabelValues("invalid order").Inc()
		return domain.Order{}, err
	}

	m.mu.RLock()
	pending := 0
	for _, o := range m.orders {
		if !o.Status.IsTerminal() {
			pending++
		}
	}
	m.mu.RUnlock()
	if pending >= m.cfg.MaxPendingOrders {
		metrics.OrdersRejectedTotal.WithLabelValues("max pending orders reached").Inc()
		return domain.Order{}, errors.New(errors.RejectedError, "max pending orders reached")
	}

	if req.ClientOrderID == "" {
		req.ClientOrderID = m.nextOrderID()
	}

	conns := m.registry.Connectors()
	conn, ok := conns[venue]
	if !ok {
		metrics.OrdersRejectedTotal.WithLabelValues("no connector registered").Inc()
		return domain.Order{}, errors.New(errors.InvalidError, "no connector registered for venue "+venue)
	}

	order, err := conn.PlaceOrder(ctx, req)
	if err != nil {
		metrics.OrdersRejectedTotal.WithLabelValues("venue rejected").Inc()
		return domain.Order{}, err
	}
	order.Venue = venue

	m.mu.Lock()
	m.orders[order.ID] = order
	m.mu.Unlock()

	metrics.OrdersPlacedTotal.WithLabelValues(venue, string(req.Side)).Inc()
	metrics.OrdersPending.Set(float64(m.pendingCount()))

	m.publish(ctx, "orders.submitted", order)
	return order, nil
}

// pendingCount counts non-terminal orders.
func (m *Manager) pendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pending := 0
	for _, o := range m.orders {
		if !o.Status.IsTerminal() {
			pending++
		}
	}
	return pending
}

// validate mirrors order_manager.py's _validate_order rules.
func validate(req connector.PlaceOrderRequest) error {
	if req.Symbol == "" || req.Side == "" || req.Type == "" {
		return errors.New(errors.InvalidError, "order missing symbol/side/type")
	}
	if req.Qty.LessThanOrEqual(decimal.Zero) {
		return errors.New(errors.InvalidError, "order quantity must be positive")
	}
	if req.Type == domain.OrderTypeLimit && req.Px.IsZero() {
		return errors.New(errors.InvalidError, "limit order requires a price")
	}
	if req.Type == domain.OrderTypeStop && req.StopPx.IsZero() {
		return errors.New(errors.InvalidError, "stop order requires a stop price")
	}
	return nil
}

// CancelOrder cancels a known order on its venue.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.RLock()
	order, ok := m.orders[orderID]
	m.mu.RUnlock()
	if !ok {
		return errors.New(errors.InvalidError, "unknown order id")
	}

	conns := m.registry.Connectors()
	conn, ok := conns[order.Venue]
	if !ok {
		return errors.New(errors.InvalidError, "no connector registered for venue "+order.Venue)
	}

	if err := conn.CancelOrder(ctx, order.VenueID); err != nil {
		return err
	}

	m.mu.Lock()
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	m.orders[orderID] = order
	m.mu.Unlock()

	metrics.OrdersCancelledTotal.WithLabelValues(order.Venue, "requested").Inc()
	metrics.OrdersPending.Set(float64(m.pendingCount()))

	m.publish(ctx, "orders.cancelled", order)
	return nil
}

// GetOrder returns the locally-known view of an order.
func (m *Manager) GetOrder(orderID string) (domain.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	return o, ok
}

// All returns every locally-known order, optionally filtered by status.
func (m *Manager) All(status domain.OrderStatus) []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// monitoringLoop mirrors _order_monitoring_loop: every tick, time out
// stale pending orders and refresh non-terminal orders' status from their
// venue (§4.7 "monitoring loop every 100ms").
func (m *Manager) monitoringLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.processPending(ctx)
			m.refreshStatuses(ctx)
		}
	}
}

func (m *Manager) processPending(ctx context.Context) {
	m.mu.Lock()
	var timedOut []domain.Order
	for id, o := range m.orders {
		if o.Status.IsTerminal() {
			continue
		}
		if time.Since(o.CreatedAt) > m.cfg.OrderTimeout {
			o.Status = domain.OrderStatusCancelled
			o.UpdatedAt = time.Now()
			m.orders[id] = o
			timedOut = append(timedOut, o)
		}
	}
	m.mu.Unlock()

	for _, o := range timedOut {
		metrics.OrdersCancelledTotal.WithLabelValues(o.Venue, "timeout").Inc()
		m.logger.Warn("order timed out - order_id: %s, venue: %s", o.ID, o.Venue)
		m.publish(ctx, "orders.cancelled", o)
	}
	if len(timedOut) > 0 {
		metrics.OrdersPending.Set(float64(m.pendingCount()))
	}
}

func (m *Manager) refreshStatuses(ctx context.Context) {
	m.mu.RLock()
	inFlight := make([]domain.Order, 0)
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusPlaced || o.Status == domain.OrderStatusPartial {
			inFlight = append(inFlight, o)
		}
	}
	m.mu.RUnlock()

	conns := m.registry.Connectors()
	for _, o := range inFlight {
		conn, ok := conns[o.Venue]
		if !ok {
			continue
		}
		updated, err := conn.GetOrderStatus(ctx, o.VenueID)
		if err != nil {
			continue
		}
		updated.Venue = o.Venue

		if updated.Status == o.Status {
			continue
		}

		m.mu.Lock()
		m.orders[o.ID] = updated
		m.mu.Unlock()

		m.publish(ctx, "orders.updated", updated)
		if updated.Status == domain.OrderStatusFilled {
			metrics.OrdersFilledTotal.WithLabelValues(updated.Venue).Inc()
			m.publish(ctx, "orders.executed", updated)
		}
		if updated.Status.IsTerminal() {
			metrics.OrdersPending.Set(float64(m.pendingCount()))
		}
	}
}

// cleanupLoop mirrors _order_cleanup_loop: drop terminal orders older than
// CleanupCutoff every CleanupInterval (§4.7 "cleanup loop every 5
// minutes, 1 hour cutoff").
func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.CleanupCutoff)
			m.mu.Lock()
			for id, o := range m.orders {
				if o.Status.IsTerminal() && o.UpdatedAt.Before(cutoff) {
					delete(m.orders, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// orderEventStreams maps the manager's internal event names to the
// canonical orders.* streams (§4.9).
var orderEventStreams = map[string]string{
	"orders.submitted": eventbus.StreamOrders,
	"orders.updated":   eventbus.StreamOrdersUpdated,
	"orders.executed":  eventbus.StreamOrdersExecuted,
	"orders.cancelled": eventbus.StreamOrdersCancelled,
}

func (m *Manager) publish(ctx context.Context, event string, o domain.Order) {
	if m.bus == nil {
		return
	}
	stream, ok := orderEventStreams[event]
	if !ok {
		stream = eventbus.StreamOrders
	}

	payload := map[string]interface{}{
		"order_id":  o.ID,
		"symbol":    o.Symbol,
		"side":      string(o.Side),
		"type":      string(o.Type),
		"price":     o.Px.String(),
		"quantity":  o.Qty.String(),
		"status":    string(o.Status),
		"timestamp": time.Now().Unix(),
	}
	if err := m.bus.Publish(ctx, stream, payload); err != nil {
		m.logger.Debug("order event publish failed - stream: %s, order_id: %s, err: %v", stream, o.ID, err)
	}
}
