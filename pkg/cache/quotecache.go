package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cryptospreadedge/platform/internal/domain"
)

// quoteCacheKeyPrefix namespaces the aggregator's reconciled-quote entries
// from anything else sharing the same Redis DB under the "aggregator"
// prefix Config.Prefix already applies.
const quoteCacheKeyPrefix = "quotes:"

// QuoteCache is a typed view over Cache for the one thing the aggregator
// actually caches: a reconciled AggregatedQuote set keyed by the sorted
// symbol list a round fanned out to (§4.3 "serves from cache between
// rounds"). Cache itself stays a generic string-keyed store so RedisCache
// can still be swapped for another backend; QuoteCache is where the
// aggregator's domain model and key convention live.
type QuoteCache struct {
	backend Cache
}

// NewQuoteCache wraps backend. A nil backend is valid: Get always misses
// and Set is a no-op, matching the aggregator's existing "cache optional"
// behavior when no cache was wired in at startup.
func NewQuoteCache(backend Cache) *QuoteCache {
	return &QuoteCache{backend: backend}
}

// QuoteSetKey derives the cache key for a round scanning symbols, sorting
// first so key identity doesn't depend on watchlist iteration order.
func QuoteSetKey(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return quoteCacheKeyPrefix + strings.Join(sorted, ",")
}

// Get returns the cached AggregatedQuote set for symbols, or ok=false on a
// cache miss, an expired entry, or when no backend is configured.
func (q *QuoteCache) Get(ctx context.Context, symbols []string) (map[string]domain.AggregatedQuote, bool) {
	if q.backend == nil {
		return nil, false
	}

	var quotes map[string]domain.AggregatedQuote
	if err := q.backend.Get(ctx, QuoteSetKey(symbols), &quotes); err != nil || len(quotes) == 0 {
		return nil, false
	}

	for symbol, quote := range quotes {
		quote.FromCache = true
		quotes[symbol] = quote
	}
	return quotes, true
}

// Set stores the round's reconciled quotes under symbols' key for ttl. A
// nil backend or empty quote set is a no-op rather than an error, since
// the aggregator treats caching as best-effort.
func (q *QuoteCache) Set(ctx context.Context, symbols []string, quotes map[string]domain.AggregatedQuote, ttl time.Duration) error {
	if q.backend == nil || len(quotes) == 0 {
		return nil
	}
	return q.backend.Set(ctx, QuoteSetKey(symbols), quotes, ttl)
}

// InvalidateSymbol drops every cached quote set that was built from a
// watchlist containing symbol, forcing the next round to re-poll it.
// Outside its tests, nothing in this module calls it.
func (q *QuoteCache) InvalidateSymbol(ctx context.Context, symbol string) error {
	if q.backend == nil {
		return nil
	}

	keys, err := q.backend.Keys(ctx, quoteCacheKeyPrefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if !strings.Contains(key, symbol) {
			continue
		}
		if err := q.backend.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
