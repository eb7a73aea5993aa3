package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryptospreadedge/platform/pkg/logger"
)

// CircuitBreakerState is the state of a per-venue circuit breaker.
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker trips after a venue accumulates FailureThreshold failures
// since the breaker last closed (successes do not reset the count),
// short-circuiting further calls for OpenTimeout
// before probing recovery in half-open state. This sits above
// RetryConfig: retry absorbs a single transient error, the breaker
// protects against a venue that is down for longer than a few retries.
type CircuitBreaker struct {
	name   string
	logger *logger.Logger
	config CircuitBreakerConfig

	state          int32
	stateChangedAt int64

	requests  int64
	failures  int64
	successes int64
	timeouts  int64

	halfOpenRequests  int64
	halfOpenSuccesses int64

	mu sync.RWMutex
}

// CircuitBreakerConfig tunes a CircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold     int64
	SuccessThreshold     int64
	TimeoutThreshold     time.Duration
	OpenTimeout          time.Duration
	HalfOpenMaxRequests  int64
	HalfOpenSuccessRatio float64
}

// DefaultCircuitBreakerConfig matches §4.1's retry/resilience defaults:
// 5 failures since the last close trip the breaker, it stays open 30s, then
// allows up to 3 half-open probes; 2 successful probes close it again and
// any failed probe reopens it.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:     5,
		SuccessThreshold:     2,
		TimeoutThreshold:     5 * time.Second,
		OpenTimeout:          30 * time.Second,
		HalfOpenMaxRequests:  3,
		HalfOpenSuccessRatio: 0.66,
	}
}

var (
	ErrCircuitBreakerOpen    = errors.New("circuit breaker is open")
	ErrCircuitBreakerTimeout = errors.New("circuit breaker timeout")
)

// CircuitBreakerFunc is the protected call.
type CircuitBreakerFunc func(context.Context) (interface{}, error)

// NewCircuitBreaker builds a breaker named for the venue it guards.
func NewCircuitBreaker(name string, config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:           name,
		logger:         log.Named("circuit." + name),
		config:         config,
		state:          int32(StateClosed),
		stateChangedAt: time.Now().UnixNano(),
	}
}

// Execute runs fn if the breaker allows it, bounded by TimeoutThreshold.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn CircuitBreakerFunc) (interface{}, error) {
	if !cb.allowRequest() {
		cb.recordFailure()
		return nil, ErrCircuitBreakerOpen
	}
	return cb.executeWithTimeout(ctx, fn)
}

func (cb *CircuitBreaker) allowRequest() bool {
	state := CircuitBreakerState(atomic.LoadInt32(&cb.state))
	now := time.Now()

	switch state {
	case StateClosed:
		return true
	case StateOpen:
		stateChangedAt := time.Unix(0, atomic.LoadInt64(&cb.stateChangedAt))
		if now.Sub(stateChangedAt) >= cb.config.OpenTimeout {
			return cb.transitionToHalfOpen()
		}
		return false
	case StateHalfOpen:
		return atomic.LoadInt64(&cb.halfOpenRequests) < cb.config.HalfOpenMaxRequests
	default:
		return false
	}
}

func (cb *CircuitBreaker) executeWithTimeout(ctx context.Context, fn CircuitBreakerFunc) (interface{}, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, cb.config.TimeoutThreshold)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	resultChan := make(chan outcome, 1)

	go func() {
		result, err := fn(timeoutCtx)
		resultChan <- outcome{result, err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			cb.recordFailure()
			return res.result, res.err
		}
		cb.recordSuccess()
		return res.result, nil
	case <-timeoutCtx.Done():
		cb.recordTimeout()
		return nil, ErrCircuitBreakerTimeout
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	atomic.AddInt64(&cb.requests, 1)
	atomic.AddInt64(&cb.successes, 1)

	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) == StateHalfOpen {
		halfOpenSuccesses := atomic.AddInt64(&cb.halfOpenSuccesses, 1)
		halfOpenRequests := atomic.AddInt64(&cb.halfOpenRequests, 1)
		successRatio := float64(halfOpenSuccesses) / float64(halfOpenRequests)
		if halfOpenRequests >= cb.config.SuccessThreshold && successRatio >= cb.config.HalfOpenSuccessRatio {
			cb.transitionToClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	atomic.AddInt64(&cb.requests, 1)
	atomic.AddInt64(&cb.failures, 1)

	state := CircuitBreakerState(atomic.LoadInt32(&cb.state))
	if state == StateClosed {
		if atomic.LoadInt64(&cb.failures) >= cb.config.FailureThreshold {
			cb.transitionToOpen()
		}
	} else if state == StateHalfOpen {
		atomic.AddInt64(&cb.halfOpenRequests, 1)
		cb.transitionToOpen()
	}
}

func (cb *CircuitBreaker) recordTimeout() {
	atomic.AddInt64(&cb.requests, 1)
	atomic.AddInt64(&cb.timeouts, 1)
	cb.recordFailure()
}

func (cb *CircuitBreaker) transitionToOpen() {
	if atomic.CompareAndSwapInt32(&cb.state, int32(StateClosed), int32(StateOpen)) ||
		atomic.CompareAndSwapInt32(&cb.state, int32(StateHalfOpen), int32(StateOpen)) {
		atomic.StoreInt64(&cb.stateChangedAt, time.Now().UnixNano())
		atomic.StoreInt64(&cb.halfOpenRequests, 0)
		atomic.StoreInt64(&cb.halfOpenSuccesses, 0)
		cb.logger.Warn("circuit breaker opened - venue: %s, failures: %d, threshold: %d",
			cb.name, atomic.LoadInt64(&cb.failures), cb.config.FailureThreshold)
	}
}

func (cb *CircuitBreaker) transitionToHalfOpen() bool {
	if atomic.CompareAndSwapInt32(&cb.state, int32(StateOpen), int32(StateHalfOpen)) {
		atomic.StoreInt64(&cb.stateChangedAt, time.Now().UnixNano())
		atomic.StoreInt64(&cb.halfOpenRequests, 0)
		atomic.StoreInt64(&cb.halfOpenSuccesses, 0)
		cb.logger.Info("circuit breaker half-open - venue: %s", cb.name)
		return true
	}
	return false
}

func (cb *CircuitBreaker) transitionToClosed() {
	if atomic.CompareAndSwapInt32(&cb.state, int32(StateHalfOpen), int32(StateClosed)) {
		atomic.StoreInt64(&cb.stateChangedAt, time.Now().UnixNano())
		atomic.StoreInt64(&cb.requests, 0)
		atomic.StoreInt64(&cb.failures, 0)
		atomic.StoreInt64(&cb.successes, 0)
		atomic.StoreInt64(&cb.timeouts, 0)
		atomic.StoreInt64(&cb.halfOpenRequests, 0)
		atomic.StoreInt64(&cb.halfOpenSuccesses, 0)
		cb.logger.Info("circuit breaker closed - venue: %s", cb.name)
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// CircuitBreakerMetrics is a snapshot exposed by GetMetrics.
type CircuitBreakerMetrics struct {
	State                CircuitBreakerState
	TotalRequests        int64
	TotalFailures        int64
	FailureRate          float64
	TimeSinceStateChange time.Duration
}

// GetMetrics returns a point-in-time snapshot, used by the ops surface's
// /debug/opportunities-adjacent venue health view.
func (cb *CircuitBreaker) GetMetrics() CircuitBreakerMetrics {
	requests := atomic.LoadInt64(&cb.requests)
	failures := atomic.LoadInt64(&cb.failures)
	stateChangedAt := time.Unix(0, atomic.LoadInt64(&cb.stateChangedAt))

	var failureRate float64
	if requests > 0 {
		failureRate = float64(failures) / float64(requests)
	}

	return CircuitBreakerMetrics{
		State:                cb.State(),
		TotalRequests:        requests,
		TotalFailures:        failures,
		FailureRate:          failureRate,
		TimeSinceStateChange: time.Since(stateChangedAt),
	}
}

// CircuitBreakerManager owns one CircuitBreaker per venue name, the same
// lazy-registry shape connector.Registry uses for connectors.
type CircuitBreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
	logger   *logger.Logger
}

// NewCircuitBreakerManager builds a manager; config is applied to every
// breaker it creates.
func NewCircuitBreakerManager(config CircuitBreakerConfig, log *logger.Logger) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		logger:   log.Named("circuitbreakers"),
	}
}

// GetOrCreate returns the venue's breaker, creating it on first use.
func (cbm *CircuitBreakerManager) GetOrCreate(venue string) *CircuitBreaker {
	cbm.mu.RLock()
	if cb, ok := cbm.breakers[venue]; ok {
		cbm.mu.RUnlock()
		return cb
	}
	cbm.mu.RUnlock()

	cbm.mu.Lock()
	defer cbm.mu.Unlock()
	if cb, ok := cbm.breakers[venue]; ok {
		return cb
	}
	cb := NewCircuitBreaker(venue, cbm.config, cbm.logger)
	cbm.breakers[venue] = cb
	return cb
}

// GetMetrics returns a snapshot for every breaker created so far.
func (cbm *CircuitBreakerManager) GetMetrics() map[string]CircuitBreakerMetrics {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	out := make(map[string]CircuitBreakerMetrics, len(cbm.breakers))
	for venue, cb := range cbm.breakers {
		out[venue] = cb.GetMetrics()
	}
	return out
}
