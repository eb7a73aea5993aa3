package concurrency

import (
	"context"
	"time"

	cserrors "github.com/cryptospreadedge/platform/pkg/errors"
)

// RetryConfig is the retry+timeout policy every venue I/O call is wrapped
// in (§4.1): a bounded number of attempts with exponential backoff, each
// attempt bounded by an overall timeout.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	Backoff   float64
	Timeout   time.Duration
}

// DefaultRetryConfig matches spec.md §4.1/§6 defaults exactly.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: 200 * time.Millisecond,
		Backoff:   2.0,
		Timeout:   5 * time.Second,
	}
}

// RetryableFunc is one I/O attempt, cancellable via ctx.
type RetryableFunc func(ctx context.Context) (interface{}, error)

// Retry runs fn up to cfg.Attempts times, each attempt bounded by
// cfg.Timeout, backing off cfg.BaseDelay * cfg.Backoff^attempt between
// tries. An attempt that exceeds its timeout surfaces as TIMEOUT and any
// other failed attempt as UNAVAILABLE; a caller who exhausts all attempts
// gets the last attempt's error, matching the adapter failure semantics
// in §4.1.
func Retry(ctx context.Context, cfg RetryConfig, fn RetryableFunc) (interface{}, error) {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, cserrors.Wrap(cserrors.TimeoutError, ctx.Err(), "retry cancelled")
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.Backoff)
		}

		result, err := runOnce(ctx, cfg.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if appErr, ok := err.(*cserrors.AppError); ok && !appErr.Retryable() {
			return nil, appErr
		}
	}

	if appErr, ok := lastErr.(*cserrors.AppError); ok {
		return nil, appErr
	}
	return nil, cserrors.Wrap(cserrors.UnavailableError, lastErr, "exhausted retry attempts")
}

// runOnce bounds a single attempt by timeout and classifies its error.
func runOnce(ctx context.Context, timeout time.Duration, fn RetryableFunc) (interface{}, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := fn(attemptCtx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, classify(o.err)
		}
		return o.result, nil
	case <-attemptCtx.Done():
		return nil, cserrors.New(cserrors.TimeoutError, "operation exceeded retry timeout")
	}
}

// classify maps a raw error into the §7 taxonomy when it isn't already an AppError.
func classify(err error) error {
	if _, ok := err.(*cserrors.AppError); ok {
		return err
	}
	if cserrors.IsTimeout(err) {
		return cserrors.Wrap(cserrors.TimeoutError, err, "operation timed out")
	}
	return cserrors.Wrap(cserrors.UnavailableError, err, "operation failed")
}
