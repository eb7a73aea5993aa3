package connector

import (
	"context"
	"sort"
	"sync"

	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Credentials are a venue's API key/secret/passphrase. Never logged.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// CredentialsProvider is the external collaborator that supplies venue
// credentials on demand (§6: "Never logged; injected via a
// CredentialsProvider interface with a single get(venue) call").
type CredentialsProvider interface {
	Get(ctx context.Context, venue string) (Credentials, error)
}

// Factory builds a Connector for a venue given its credentials.
type Factory func(creds Credentials) (Connector, error)

// Registry owns the set of connectors, creates them on demand from the
// venue catalog, connects/disconnects in parallel, and tracks health
// (§4.2).
type Registry struct {
	logger      *logger.Logger
	creds       CredentialsProvider
	factories   map[string]Factory
	rateLimiter *concurrency.VenueRateLimiter
	retryConfig concurrency.RetryConfig
	breakers    *concurrency.CircuitBreakerManager

	mu         sync.RWMutex
	connectors map[string]Connector
	healthy    map[string]bool
}

// NewRegistry builds a Registry; factories maps venue name to its Connector
// constructor (supplied by internal/connector/venues at wiring time).
func NewRegistry(log *logger.Logger, creds CredentialsProvider, factories map[string]Factory) *Registry {
	return &Registry{
		logger:      log.Named("connector-registry"),
		creds:       creds,
		factories:   factories,
		rateLimiter: concurrency.NewVenueRateLimiter(10, 20),
		retryConfig: concurrency.DefaultRetryConfig(),
		breakers:    concurrency.NewCircuitBreakerManager(concurrency.DefaultCircuitBreakerConfig(), log),
		connectors:  make(map[string]Connector),
		healthy:     make(map[string]bool),
	}
}

// RateLimiter exposes the shared per-venue limiter so adapters built by the
// factories can throttle their own outbound calls.
func (r *Registry) RateLimiter() *concurrency.VenueRateLimiter {
	return r.rateLimiter
}

// RetryConfig exposes the default retry+timeout policy (§4.1) for adapters
// to wrap their I/O calls with.
func (r *Registry) RetryConfig() concurrency.RetryConfig {
	return r.retryConfig
}

// CircuitBreaker returns (creating if needed) the named venue's breaker, so
// a factory closure can hand it to the connector it constructs. One breaker
// instance per venue is shared across reconnects for the registry's
// lifetime, the same way RateLimiter is shared.
func (r *Registry) CircuitBreaker(venue string) *concurrency.CircuitBreaker {
	return r.breakers.GetOrCreate(venue)
}

// BreakerMetrics returns a snapshot of every venue breaker created so far,
// for the ops surface's venue health view.
func (r *Registry) BreakerMetrics() map[string]concurrency.CircuitBreakerMetrics {
	return r.breakers.GetMetrics()
}

// getOrCreate lazily builds and caches the connector for venue.
func (r *Registry) getOrCreate(ctx context.Context, venue string) (Connector, error) {
	r.mu.RLock()
	if c, ok := r.connectors[venue]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	factory, ok := r.factories[venue]
	if !ok {
		return nil, errors.New(errors.InvalidError, "no factory registered for venue "+venue)
	}

	creds, err := r.creds.Get(ctx, venue)
	if err != nil {
		return nil, errors.Wrap(errors.UnavailableError, err, "fetching credentials for "+venue)
	}

	conn, err := factory(creds)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, err, "constructing connector for "+venue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.connectors[venue]; ok {
		return existing, nil
	}
	r.connectors[venue] = conn
	return conn, nil
}

// ConnectAll creates and connects every venue in `venues` concurrently,
// recording health per venue. Connect failures are collected but do not
// abort siblings (§4.2 "Health is refreshed... a connector flagged
// unhealthy is excluded").
func (r *Registry) ConnectAll(ctx context.Context, venues []string) map[string]error {
	results := make(map[string]error, len(venues))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, venue := range venues {
		wg.Add(1)
		go func(venue string) {
			defer wg.Done()
			conn, err := r.getOrCreate(ctx, venue)
			if err != nil {
				mu.Lock()
				results[venue] = err
				mu.Unlock()
				r.setHealthy(venue, false)
				return
			}

			err = conn.Connect(ctx)
			mu.Lock()
			results[venue] = err
			mu.Unlock()
			r.setHealthy(venue, err == nil)
		}(venue)
	}

	wg.Wait()
	return results
}

// DisconnectAll tears down every currently-known connector concurrently.
func (r *Registry) DisconnectAll(ctx context.Context) {
	r.mu.RLock()
	conns := make(map[string]Connector, len(r.connectors))
	for venue, c := range r.connectors {
		conns[venue] = c
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for venue, conn := range conns {
		wg.Add(1)
		go func(venue string, conn Connector) {
			defer wg.Done()
			if err := conn.Disconnect(ctx); err != nil {
				r.logger.Warn("disconnect failed - venue: %s, err: %v", venue, err)
			}
			r.setHealthy(venue, false)
		}(venue, conn)
	}
	wg.Wait()
}

func (r *Registry) setHealthy(venue string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthy[venue] = ok
}

// Connectors returns the live venue→connector map.
func (r *Registry) Connectors() map[string]Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Connector, len(r.connectors))
	for k, v := range r.connectors {
		out[k] = v
	}
	return out
}

// Connected returns the names of venues currently healthy and connected.
func (r *Registry) Connected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for venue, ok := range r.healthy {
		if ok {
			out = append(out, venue)
		}
	}
	sort.Strings(out)
	return out
}

// Ping refreshes health for one venue via a lightweight call; an adapter
// that fails connect stays disconnected and is skipped by the aggregator
// until the next successful ping (§4.1).
func (r *Registry) Ping(ctx context.Context, venue string) bool {
	r.mu.RLock()
	conn, ok := r.connectors[venue]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	healthy := conn.IsConnected()
	r.setHealthy(venue, healthy)
	return healthy
}

// SelectForArbitrage ranks connected venues by the composite score in
// §4.2 and returns the top n.
func SelectForArbitrage(connected []string, n int) []string {
	type scored struct {
		venue string
		score float64
	}

	scoredVenues := make([]scored, 0, len(connected))
	for _, venue := range connected {
		entry, ok := Catalog[venue]
		if !ok {
			continue
		}
		scoredVenues = append(scoredVenues, scored{venue, CompositeScore(entry)})
	}

	sort.Slice(scoredVenues, func(i, j int) bool {
		return scoredVenues[i].score > scoredVenues[j].score
	})

	if n > len(scoredVenues) {
		n = len(scoredVenues)
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, scoredVenues[i].venue)
	}
	return out
}
