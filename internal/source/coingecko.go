package source

import (
	"context"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// CoinGecko is a read-only adapter over the CoinGecko public price API.
type CoinGecko struct {
	httpSource
}

func NewCoinGecko(apiKey string, retry concurrency.RetryConfig, log *logger.Logger) *CoinGecko {
	return &CoinGecko{httpSource: newHTTPSource("coingecko", "https://api.coingecko.com/api/v3", apiKey, retry, log)}
}

func (c *CoinGecko) GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	return c.simulate(ctx, symbols, 17)
}
