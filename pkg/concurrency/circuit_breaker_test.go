package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/pkg/logger"
)

func testBreaker() *CircuitBreaker {
	cfg := CircuitBreakerConfig{
		FailureThreshold:     3,
		SuccessThreshold:     2,
		TimeoutThreshold:     50 * time.Millisecond,
		OpenTimeout:          20 * time.Millisecond,
		HalfOpenMaxRequests:  2,
		HalfOpenSuccessRatio: 0.5,
	}
	return NewCircuitBreaker("test-venue", cfg, logger.New("test"))
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb := testBreaker()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	cb := testBreaker()
	failing := func(context.Context) (interface{}, error) { return nil, errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), failing)
		assert.Error(t, err)
	}

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerFailsFastWhileOpen(t *testing.T) {
	cb := testBreaker()
	failing := func(context.Context) (interface{}, error) { return nil, errors.New("boom") }
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	_, err := cb.Execute(context.Background(), func(context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreakerHalfOpensAfterOpenTimeoutAndCloses(t *testing.T) {
	cb := testBreaker()
	failing := func(context.Context) (interface{}, error) { return nil, errors.New("boom") }
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	succeeding := func(context.Context) (interface{}, error) { return "ok", nil }
	_, err := cb.Execute(context.Background(), succeeding)
	require.NoError(t, err)
	_, err = cb.Execute(context.Background(), succeeding)
	require.NoError(t, err)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerManagerReturnsSameInstancePerVenue(t *testing.T) {
	mgr := NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), logger.New("test"))
	a := mgr.GetOrCreate("binance")
	b := mgr.GetOrCreate("binance")
	c := mgr.GetOrCreate("coinbase")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestCircuitBreakerManagerGetMetricsCoversEveryCreatedBreaker(t *testing.T) {
	mgr := NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), logger.New("test"))
	mgr.GetOrCreate("binance")
	mgr.GetOrCreate("kraken")

	metrics := mgr.GetMetrics()
	assert.Len(t, metrics, 2)
	assert.Contains(t, metrics, "binance")
	assert.Contains(t, metrics, "kraken")
}
