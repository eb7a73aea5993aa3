package venues

import (
	"strings"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// krakenCodec maps BASE/QUOTE to Kraken's concatenated, prefixed form
// (e.g. BTC/USD -> XBTUSD); only the well-known BTC->XBT rename is applied,
// other assets pass through unprefixed.
type krakenCodec struct{}

func (krakenCodec) ToVenue(canonical string) string {
	parts := strings.SplitN(canonical, "/", 2)
	if len(parts) != 2 {
		return canonical
	}
	base, quote := normalizeKraken(parts[0]), normalizeKraken(parts[1])
	return base + quote
}

func (krakenCodec) FromVenue(venueSymbol string) string {
	return venueSymbol
}

func normalizeKraken(asset string) string {
	if asset == "BTC" {
		return "XBT"
	}
	return asset
}

// NewKraken builds the Kraken venue connector. breaker may be nil.
func NewKraken(creds connector.Credentials, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig, breaker *concurrency.CircuitBreaker) connector.Connector {
	return newRESTCEX("kraken", "https://api.kraken.com", krakenCodec{}, creds, log, rl, retry, breaker)
}
