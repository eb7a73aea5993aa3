package source

import (
	"context"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// CoinMarketCap is a read-only adapter over the CoinMarketCap price API.
type CoinMarketCap struct {
	httpSource
}

func NewCoinMarketCap(apiKey string, retry concurrency.RetryConfig, log *logger.Logger) *CoinMarketCap {
	return &CoinMarketCap{httpSource: newHTTPSource("coinmarketcap", "https://pro-api.coinmarketcap.com/v2", apiKey, retry, log)}
}

func (c *CoinMarketCap) GetMarketData(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	return c.simulate(ctx, symbols, 31)
}
