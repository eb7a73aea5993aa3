package venues

import (
	"strings"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// okxCodec maps BASE/QUOTE to OKX's hyphenated form (BTC-USDT).
type okxCodec struct{}

func (okxCodec) ToVenue(canonical string) string {
	return strings.ReplaceAll(canonical, "/", "-")
}

func (okxCodec) FromVenue(venueSymbol string) string {
	return strings.ReplaceAll(venueSymbol, "-", "/")
}

// NewOKX builds the OKX venue connector. breaker may be nil.
func NewOKX(creds connector.Credentials, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig, breaker *concurrency.CircuitBreaker) connector.Connector {
	return newRESTCEX("okx", "https://www.okx.com", okxCodec{}, creds, log, rl, retry, breaker)
}
