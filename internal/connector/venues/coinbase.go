package venues

import (
	"strings"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// coinbaseCodec maps BASE/QUOTE to Coinbase's hyphenated form (BTC-USD).
type coinbaseCodec struct{}

func (coinbaseCodec) ToVenue(canonical string) string {
	return strings.ReplaceAll(canonical, "/", "-")
}

func (coinbaseCodec) FromVenue(venueSymbol string) string {
	return strings.ReplaceAll(venueSymbol, "-", "/")
}

// NewCoinbase builds the Coinbase venue connector. breaker may be nil.
func NewCoinbase(creds connector.Credentials, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig, breaker *concurrency.CircuitBreaker) connector.Connector {
	return newRESTCEX("coinbase", "https://api.exchange.coinbase.com", coinbaseCodec{}, creds, log, rl, retry, breaker)
}
