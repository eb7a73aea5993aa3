package venues

import (
	"strings"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// binanceCodec maps BASE/QUOTE to Binance's concatenated BASEQUOTE form
// (e.g. BTC/USDT -> BTCUSDT), grounded on binance_connector.py's symbol
// translation role in the original.
type binanceCodec struct{}

func (binanceCodec) ToVenue(canonical string) string {
	return strings.ReplaceAll(canonical, "/", "")
}

func (binanceCodec) FromVenue(venueSymbol string) string {
	// Binance symbols have no separator; canonicalization for a fixed
	// catalog of quote assets is sufficient here.
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(venueSymbol, quote) && len(venueSymbol) > len(quote) {
			return venueSymbol[:len(venueSymbol)-len(quote)] + "/" + quote
		}
	}
	return venueSymbol
}

// NewBinance builds the Binance venue connector. breaker may be nil, in
// which case withRetry falls back to bare retry+timeout with no trip logic.
func NewBinance(creds connector.Credentials, log *logger.Logger, rl *concurrency.VenueRateLimiter, retry concurrency.RetryConfig, breaker *concurrency.CircuitBreaker) connector.Connector {
	return newRESTCEX("binance", "https://api.binance.com", binanceCodec{}, creds, log, rl, retry, breaker)
}
