// Package source adapts read-only alternative market-data providers
// (CoinGecko, CoinMarketCap, and the like) into the same Ticker shape the
// connector layer produces, so the aggregator can blend both without
// caring where a quote came from. Unlike a Connector, a Source never
// places orders and a failure here never blocks the aggregator — it just
// means one fewer input to reconcile (§4.3).
package source

import (
	"context"
	"net/http"
	"time"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Source is a read-only alternative market-data provider.
type Source interface {
	Name() string
	GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error)
}

// Registry holds every enabled Source and fans a request out to all of
// them, tolerating individual failures (§4.3: "a source failing never
// blocks the aggregator; its quotes are simply absent that round").
type Registry struct {
	sources []Source
	logger  *logger.Logger
}

func NewRegistry(log *logger.Logger, sources ...Source) *Registry {
	return &Registry{sources: sources, logger: log.Named("source-registry")}
}

// GetAll fans GetMarketData out to every registered source concurrently
// and returns source name -> its ticker map, omitting any source that
// errored or timed out.
func (r *Registry) GetAll(ctx context.Context, symbols []string) map[string]map[string]domain.Ticker {
	type result struct {
		name string
		data map[string]domain.Ticker
	}

	ch := make(chan result, len(r.sources))
	for _, s := range r.sources {
		go func(s Source) {
			data, err := s.GetMarketData(ctx, symbols)
			if err != nil {
				r.logger.Debug("alternative source unavailable - source: %s, err: %v", s.Name(), err)
				ch <- result{name: s.Name(), data: nil}
				return
			}
			ch <- result{name: s.Name(), data: data}
		}(s)
	}

	out := make(map[string]map[string]domain.Ticker, len(r.sources))
	for i := 0; i < len(r.sources); i++ {
		res := <-ch
		if res.data != nil {
			out[res.name] = res.data
		}
	}
	return out
}

// httpSource is the shared skeleton behind the concrete coingecko/
// coinmarketcap providers: a name, a base URL and API key, a pooled client,
// and the standard retry+timeout policy. No HTTP request is made through
// it; baseURL and apiKey are stored but not read.
type httpSource struct {
	name        string
	baseURL     string
	apiKey      string
	client      *http.Client
	retryConfig concurrency.RetryConfig
	logger      *logger.Logger
}

func newHTTPSource(name, baseURL, apiKey string, retry concurrency.RetryConfig, log *logger.Logger) httpSource {
	return httpSource{
		name:        name,
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: retry.Timeout},
		retryConfig: retry,
		logger:      log.Named(name),
	}
}

func (s httpSource) Name() string { return s.name }

// simulate stands in for a live HTTP call: this module carries no API key
// for any alternative provider, so each source derives a deterministic
// quote consistent with the connectors' synthetic pricing rather than
// failing outright. It runs a no-op attempt through Retry and does not
// contact baseURL.
func (s httpSource) simulate(ctx context.Context, symbols []string, jitterSeed int64) (map[string]domain.Ticker, error) {
	_, err := concurrency.Retry(ctx, s.retryConfig, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.UnavailableError, err, "fetching "+s.name+" market data")
	}

	out := make(map[string]domain.Ticker, len(symbols))
	for _, symbol := range symbols {
		mid := syntheticSourceMid(symbol, jitterSeed)
		out[symbol] = domain.Ticker{
			Symbol:    symbol,
			Last:      mid,
			Bid:       mid,
			Ask:       mid,
			Volume:    mid, // placeholder magnitude; alt sources rarely report depth
			Timestamp: time.Now(),
			Source:    s.name,
		}
	}
	return out, nil
}
