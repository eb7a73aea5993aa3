// Package aggregator reconciles ticker data from every connected venue
// connector and every alternative source into one AggregatedQuote per
// symbol (§4.3), and derives crude cross-venue spread candidates for
// callers that only need a quick scan rather than the full scoring
// pipeline in internal/arbitrage.
package aggregator

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/metrics"
	"github.com/cryptospreadedge/platform/internal/source"
	"github.com/cryptospreadedge/platform/pkg/cache"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// DefaultPerTaskDeadline bounds how long the aggregator waits on any one
// connector or source before treating it as absent for the round (§4.3).
const DefaultPerTaskDeadline = 2 * time.Second

// DefaultCacheTTL is how long a reconciled quote is served from cache
// before the next round re-polls every source (§4.3).
const DefaultCacheTTL = 30 * time.Second

// outlierSigma bounds how far a single source's price may sit from the
// mean of the other sources (in their standard deviations) before it is
// treated as a bad print and dropped from the reconciliation (Open
// Question #1, resolved in DESIGN.md: mean with 3-sigma outlier rejection).
const outlierSigma = 3.0

// Aggregator fans a symbol list out to every connector and source,
// reconciles the results, and serves from a short-TTL cache in between
// rounds.
type Aggregator struct {
	registry *connector.Registry
	sources  *source.Registry
	cache    *cache.QuoteCache
	cacheTTL time.Duration
	deadline time.Duration
	logger   *logger.Logger
}

func New(registry *connector.Registry, sources *source.Registry, c cache.Cache, log *logger.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		sources:  sources,
		cache:    cache.NewQuoteCache(c),
		cacheTTL: DefaultCacheTTL,
		deadline: DefaultPerTaskDeadline,
		logger:   log.Named("aggregator"),
	}
}

// GetAggregatedData returns one reconciled AggregatedQuote per symbol that
// had at least one usable price, serving from cache when fresh.
func (a *Aggregator) GetAggregatedData(ctx context.Context, symbols []string) (map[string]domain.AggregatedQuote, error) {
	if cached, ok := a.cache.Get(ctx, symbols); ok {
		metrics.AggregatorCacheHitsTotal.Inc()
		return cached, nil
	}
	metrics.AggregatorCacheMissesTotal.Inc()

	start := time.Now()
	perSource := a.collect(ctx, symbols)

	out := make(map[string]domain.AggregatedQuote, len(symbols))
	for _, symbol := range symbols {
		quote, ok := reconcile(symbol, perSource)
		if !ok {
			continue
		}
		out[symbol] = quote
		metrics.AggregatorSymbolsReconciledTotal.WithLabelValues(symbol).Inc()
	}
	metrics.AggregatorReconcileDuration.Observe(time.Since(start).Seconds())

	if err := a.cache.Set(ctx, symbols, out, a.cacheTTL); err != nil {
		a.logger.Debug("aggregator cache write failed - symbols: %v, err: %v", symbols, err)
	}

	return out, nil
}

// collect fans out to every connected connector and every alternative
// source concurrently, each bounded by the per-task deadline, and returns
// source name -> symbol -> Ticker. A connector or source that errors or
// overruns its deadline is simply absent from the result (§4.3 "never
// blocks the round").
func (a *Aggregator) collect(ctx context.Context, symbols []string) map[string]map[string]domain.Ticker {
	results := make(map[string]map[string]domain.Ticker)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for venue, conn := range a.registry.Connectors() {
		if !conn.IsConnected() {
			continue
		}
		wg.Add(1)
		go func(venue string, conn connector.Connector) {
			defer wg.Done()
			taskCtx, cancel := context.WithTimeout(ctx, a.deadline)
			defer cancel()

			data, err := conn.GetMarketData(taskCtx, symbols)
			if err != nil {
				a.logger.Debug("connector data unavailable - venue: %s, err: %v", venue, err)
				return
			}
			mu.Lock()
			results[venue] = data
			mu.Unlock()
		}(venue, conn)
	}
	wg.Wait()

	if a.sources != nil {
		sourceCtx, cancel := context.WithTimeout(ctx, a.deadline)
		defer cancel()
		for name, data := range a.sources.GetAll(sourceCtx, symbols) {
			mu.Lock()
			results[name] = data
			mu.Unlock()
		}
	}

	return results
}

// reconcile combines every source's ticker for symbol into one
// AggregatedQuote: mean price with 3-sigma outlier rejection (with three
// or more sources, each price is judged against the others), averaged
// bid/ask, and the confidence formula from §4.3.
func reconcile(symbol string, perSource map[string]map[string]domain.Ticker) (domain.AggregatedQuote, bool) {
	type quoted struct {
		source string
		price  float64
		bid    float64
		ask    float64
		volume float64
	}

	var candidates []quoted
	for sourceName, data := range perSource {
		t, ok := data[symbol]
		if !ok {
			continue
		}
		price, _ := t.Last.Float64()
		if price <= 0 {
			continue
		}
		bid, _ := t.Bid.Float64()
		ask, _ := t.Ask.Float64()
		volume, _ := t.Volume.Float64()
		candidates = append(candidates, quoted{sourceName, price, bid, ask, volume})
	}

	if len(candidates) == 0 {
		return domain.AggregatedQuote{}, false
	}

	prices := make([]float64, len(candidates))
	for i, c := range candidates {
		prices[i] = c.price
	}
	_, stddev := meanStddev(prices)

	filtered := candidates
	if stddev > 0 && len(candidates) > 2 {
		filtered = make([]quoted, 0, len(candidates))
		others := make([]float64, 0, len(prices)-1)
		for i, c := range candidates {
			others = append(others[:0], prices[:i]...)
			others = append(others, prices[i+1:]...)
			otherMean, otherStddev := meanStddev(others)
			if math.Abs(c.price-otherMean) <= outlierSigma*otherStddev {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			filtered = candidates // every source disagreed violently; keep them all rather than return nothing
		}
	}

	var sumPrice, sumBid, sumAsk, sumVolume float64
	var bidCount, askCount int
	sources := make([]string, 0, len(filtered))
	for _, c := range filtered {
		sumPrice += c.price
		sumVolume += c.volume
		sources = append(sources, c.source)
		if c.bid > 0 {
			sumBid += c.bid
			bidCount++
		}
		if c.ask > 0 {
			sumAsk += c.ask
			askCount++
		}
	}
	sort.Strings(sources)

	n := float64(len(filtered))
	mid := sumPrice / n

	var bid, ask float64
	if bidCount > 0 {
		bid = sumBid / float64(bidCount)
	} else {
		bid = mid * 0.999
	}
	if askCount > 0 {
		ask = sumAsk / float64(askCount)
	} else {
		ask = mid * 1.001
	}

	filteredPrices := make([]float64, len(filtered))
	for i, c := range filtered {
		filteredPrices[i] = c.price
	}
	_, filteredStddev := meanStddev(filteredPrices)
	confidence := calculateConfidence(filteredPrices, filteredStddev)

	return domain.AggregatedQuote{
		Symbol:      symbol,
		Mid:         decimal.NewFromFloat(mid),
		Bid:         decimal.NewFromFloat(bid),
		Ask:         decimal.NewFromFloat(ask),
		Spread:      decimal.NewFromFloat(ask - bid),
		Volume:      decimal.NewFromFloat(sumVolume / n),
		SourcesUsed: sources,
		Confidence:  confidence,
		Timestamp:   time.Now(),
		FromCache:   false,
	}, true
}

// calculateConfidence mirrors the original's data_aggregator
// _calculate_confidence: 1 - coefficient of variation, clamped to [0,1],
// plus a bonus of up to 0.2 for having more corroborating sources.
func calculateConfidence(prices []float64, stddev float64) float64 {
	if len(prices) < 2 {
		return 0.5
	}

	mean, _ := meanStddev(prices)
	cv := 1.0
	if mean > 0 {
		cv = stddev / mean
	}

	confidence := 1.0 - cv
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	bonus := 0.05 * float64(len(prices))
	if bonus > 0.2 {
		bonus = 0.2
	}
	confidence += bonus
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func meanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / float64(len(values)-1))
	return mean, stddev
}
