// Package execution turns an accepted Opportunity into a paired
// buy/sell Execution, submitting both legs concurrently and driving the
// PENDING -> PLACING -> COMPLETED/ROLLED_BACK/FAILED state machine (§4.8).
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/metrics"
	"github.com/cryptospreadedge/platform/internal/orders"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// DefaultConcurrency is the global cap on in-flight executions (§5 default: 8).
const DefaultConcurrency = 8

// DefaultSafetyFactor multiplies an opportunity's EstExecSeconds to set the
// deadline of the context Execute places both legs (and any rollback) under.
const DefaultSafetyFactor = 3.0

// Engine submits and tracks paired executions.
type Engine struct {
	orderMgr    *orders.Manager
	bus         *eventbus.Bus
	logger      *logger.Logger
	semaphore   chan struct{}
	safetyFactor float64

	mu     sync.Mutex
	inFlight map[string]bool // "symbol|buyVenue|sellVenue" -> in progress
}

func New(orderMgr *orders.Manager, bus *eventbus.Bus, log *logger.Logger, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		orderMgr:     orderMgr,
		bus:          bus,
		logger:       log.Named("execution"),
		semaphore:    make(chan struct{}, concurrency),
		safetyFactor: DefaultSafetyFactor,
		inFlight:     make(map[string]bool),
	}
}

func executionKey(opp domain.Opportunity) string {
	return opp.Symbol + "|" + opp.BuyVenue + "|" + opp.SellVenue
}

// Execute runs the full §4.8 protocol for opp, blocking until the
// execution reaches a terminal state. It enforces at-most-one in-flight
// execution per (symbol, buyVenue, sellVenue) triple and the global
// concurrency semaphore.
func (e *Engine) Execute(ctx context.Context, opp domain.Opportunity) (domain.Execution, error) {
	key := executionKey(opp)

	e.mu.Lock()
	if e.inFlight[key] {
		e.mu.Unlock()
		return domain.Execution{}, errors.New(errors.RejectedError, "execution already in flight for "+key)
	}
	e.inFlight[key] = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.inFlight, key)
		e.mu.Unlock()
	}()

	select {
	case e.semaphore <- struct{}{}:
		defer func() { <-e.semaphore }()
	case <-ctx.Done():
		return domain.Execution{}, ctx.Err()
	}

	exec := domain.Execution{
		ID:          uuid.New().String(),
		Opportunity: opp,
		Status:      domain.ExecutionPending,
		Timestamp:   time.Now(),
	}

	deadline := time.Duration(opp.EstExecSeconds*e.safetyFactor) * time.Second
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	exec.Status = domain.ExecutionPlacing

	buyReq := connector.PlaceOrderRequest{
		ClientOrderID: "EXE_" + exec.ID + "_BUY",
		Symbol:        opp.Symbol,
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Qty:           opp.TradableSize,
	}
	sellReq := connector.PlaceOrderRequest{
		ClientOrderID: "EXE_" + exec.ID + "_SELL",
		Symbol:        opp.Symbol,
		Side:          domain.SideSell,
		Type:          domain.OrderTypeMarket,
		Qty:           opp.TradableSize,
	}

	var buyOrder, sellOrder domain.Order
	var buyErr, sellErr error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		buyOrder, buyErr = e.orderMgr.PlaceOrder(execCtx, opp.BuyVenue, buyReq)
	}()
	go func() {
		defer wg.Done()
		sellOrder, sellErr = e.orderMgr.PlaceOrder(execCtx, opp.SellVenue, sellReq)
	}()
	wg.Wait()

	exec.BuyOrderID = buyReq.ClientOrderID
	exec.SellOrderID = sellReq.ClientOrderID
	exec.Elapsed = time.Since(start)

	buyFilled := buyErr == nil && buyOrder.Status == domain.OrderStatusFilled
	sellFilled := sellErr == nil && sellOrder.Status == domain.OrderStatusFilled

	switch {
	case buyFilled && sellFilled:
		exec.Status = domain.ExecutionCompleted
		exec.NetProfit = sellOrder.AvgPx.Mul(sellOrder.FilledQty).
			Sub(buyOrder.AvgPx.Mul(buyOrder.FilledQty)).
			Sub(opp.Fees)
		exec.FeesPaid = opp.Fees
	case buyFilled && !sellFilled:
		exec.Status, exec.NetProfit = e.rollback(execCtx, opp, buyOrder, domain.SideSell)
		exec.FailureReason = "sell leg failed, buy leg reversed"
	case !buyFilled && sellFilled:
		exec.Status, exec.NetProfit = e.rollback(execCtx, opp, sellOrder, domain.SideBuy)
		exec.FailureReason = "buy leg failed, sell leg reversed"
	default:
		exec.Status = domain.ExecutionFailed
		exec.FailureReason = "both legs failed"
	}

	metrics.ExecutionsTotal.WithLabelValues(string(exec.Status)).Inc()
	metrics.ExecutionDuration.Observe(exec.Elapsed.Seconds())
	if netProfit, ok := exec.NetProfit.Float64(); ok {
		metrics.ExecutionNetProfit.Observe(netProfit)
	}

	e.publish(ctx, exec)
	return exec, nil
}

// rollback reverses the single filled leg at market and reports the
// realized loss (fees plus any adverse move on the reversal), per §4.8
// step 5.
func (e *Engine) rollback(ctx context.Context, opp domain.Opportunity, filled domain.Order, reverseSide domain.Side) (domain.ExecutionStatus, decimal.Decimal) {
	// Reverse on the same venue the fill happened on: a position opened
	// there is closed there.
	reverseReq := connector.PlaceOrderRequest{
		ClientOrderID: "EXE_" + opp.ID + "_ROLLBACK",
		Symbol:        opp.Symbol,
		Side:          reverseSide,
		Type:          domain.OrderTypeMarket,
		Qty:           filled.FilledQty,
	}

	reversedLeg := domain.SideBuy
	if reverseSide == domain.SideBuy {
		reversedLeg = domain.SideSell
	}
	metrics.ExecutionRollbacksTotal.WithLabelValues(string(reversedLeg)).Inc()

	reversed, err := e.orderMgr.PlaceOrder(ctx, filled.Venue, reverseReq)
	if err != nil || reversed.Status != domain.OrderStatusFilled {
		e.logger.Warn("rollback leg failed - execution_opportunity: %s, venue: %s, err: %v", opp.ID, filled.Venue, err)
		return domain.ExecutionFailed, filled.AvgPx.Mul(filled.FilledQty).Neg()
	}

	loss := reversed.AvgPx.Sub(filled.AvgPx).Mul(filled.FilledQty)
	if filled.Side == domain.SideSell {
		loss = loss.Neg()
	}
	return domain.ExecutionRolledBack, loss.Sub(opp.Fees)
}

func (e *Engine) publish(ctx context.Context, exec domain.Execution) {
	if e.bus == nil {
		return
	}
	payload := map[string]interface{}{
		"execution_id": exec.ID,
		"symbol":       exec.Opportunity.Symbol,
		"status":       string(exec.Status),
		"net_profit":   exec.NetProfit.String(),
		"fees_paid":    exec.FeesPaid.String(),
		"elapsed_ms":   exec.Elapsed.Milliseconds(),
		"timestamp":    time.Now().Unix(),
	}
	if err := e.bus.Publish(ctx, eventbus.StreamExecutions, payload); err != nil {
		e.logger.Warn("publishing execution failed - execution_id: %s, err: %v", exec.ID, err)
	}
}
