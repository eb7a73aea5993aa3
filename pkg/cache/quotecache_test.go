package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/domain"
)

// fakeCache is a minimal in-memory Cache, just enough for QuoteCache's unit
// tests — no Redis dependency.
type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = data
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := f.store[key]
	if !ok {
		return assert.AnError
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func (f *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.store[key]
	return ok, nil
}

func (f *fakeCache) Expire(context.Context, string, time.Duration) error { return nil }

func (f *fakeCache) Keys(_ context.Context, pattern string) ([]string, error) {
	var out []string
	for k := range f.store {
		out = append(out, k)
	}
	_ = pattern
	return out, nil
}

func (f *fakeCache) FlushAll(context.Context) error {
	f.store = make(map[string][]byte)
	return nil
}

func (f *fakeCache) Health(context.Context) error { return nil }

func (f *fakeCache) MSet(ctx context.Context, pairs map[string]interface{}, ttl time.Duration) error {
	for k, v := range pairs {
		if err := f.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCache) MGet(context.Context, []string) (map[string]interface{}, error) { return nil, nil }
func (f *fakeCache) MDelete(context.Context, []string) error                        { return nil }
func (f *fakeCache) Pipeline() *RedisPipeline                                        { return nil }

func sampleQuotes() map[string]domain.AggregatedQuote {
	return map[string]domain.AggregatedQuote{
		"BTC/USDT": {
			Symbol:      "BTC/USDT",
			Mid:         decimal.NewFromFloat(50000),
			SourcesUsed: []string{"binance", "coinbase"},
			Confidence:  0.9,
			Timestamp:   time.Now(),
		},
	}
}

func TestQuoteCacheGetMissesWhenNilBackend(t *testing.T) {
	qc := NewQuoteCache(nil)
	_, ok := qc.Get(context.Background(), []string{"BTC/USDT"})
	assert.False(t, ok)
}

func TestQuoteCacheSetIsNoOpWhenNilBackend(t *testing.T) {
	qc := NewQuoteCache(nil)
	assert.NoError(t, qc.Set(context.Background(), []string{"BTC/USDT"}, sampleQuotes(), time.Minute))
}

func TestQuoteCacheRoundTripsMarksFromCache(t *testing.T) {
	qc := NewQuoteCache(newFakeCache())
	symbols := []string{"BTC/USDT"}

	require.NoError(t, qc.Set(context.Background(), symbols, sampleQuotes(), time.Minute))

	got, ok := qc.Get(context.Background(), symbols)
	require.True(t, ok)
	quote := got["BTC/USDT"]
	assert.True(t, quote.FromCache)
	assert.True(t, quote.Mid.Equal(decimal.NewFromFloat(50000)))
}

func TestQuoteCacheKeyIsOrderIndependentOfWatchlist(t *testing.T) {
	backend := newFakeCache()
	qc := NewQuoteCache(backend)

	require.NoError(t, qc.Set(context.Background(), []string{"BTC/USDT", "ETH/USDT"}, sampleQuotes(), time.Minute))

	got, ok := qc.Get(context.Background(), []string{"ETH/USDT", "BTC/USDT"})
	assert.True(t, ok)
	assert.Contains(t, got, "BTC/USDT")
}

func TestQuoteCacheSetSkipsEmptyQuoteSet(t *testing.T) {
	backend := newFakeCache()
	qc := NewQuoteCache(backend)

	require.NoError(t, qc.Set(context.Background(), []string{"BTC/USDT"}, map[string]domain.AggregatedQuote{}, time.Minute))
	assert.Empty(t, backend.store)
}

func TestQuoteCacheInvalidateSymbolDropsMatchingKeys(t *testing.T) {
	backend := newFakeCache()
	qc := NewQuoteCache(backend)

	require.NoError(t, qc.Set(context.Background(), []string{"BTC/USDT", "ETH/USDT"}, sampleQuotes(), time.Minute))
	require.NoError(t, qc.Set(context.Background(), []string{"SOL/USDT"}, sampleQuotes(), time.Minute))

	require.NoError(t, qc.InvalidateSymbol(context.Background(), "BTC/USDT"))

	_, ok := qc.Get(context.Background(), []string{"BTC/USDT", "ETH/USDT"})
	assert.False(t, ok)
	_, ok = qc.Get(context.Background(), []string{"SOL/USDT"})
	assert.True(t, ok)
}
