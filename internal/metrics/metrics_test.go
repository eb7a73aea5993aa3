package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAggregatorCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(AggregatorCacheHitsTotal)
	AggregatorCacheHitsTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AggregatorCacheHitsTotal))
}

func TestArbitrageOpportunitiesAcceptedTotalIsLabeledBySymbolAndVenues(t *testing.T) {
	before := testutil.ToFloat64(ArbitrageOpportunitiesAcceptedTotal.WithLabelValues("BTC/USDT", "binance", "kraken"))
	ArbitrageOpportunitiesAcceptedTotal.WithLabelValues("BTC/USDT", "binance", "kraken").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ArbitrageOpportunitiesAcceptedTotal.WithLabelValues("BTC/USDT", "binance", "kraken")))
}

func TestRiskDailyPnLGaugeIsSettable(t *testing.T) {
	RiskDailyPnL.Set(42.5)
	assert.Equal(t, 42.5, testutil.ToFloat64(RiskDailyPnL))
}

func TestOrdersPendingGaugeTracksSet(t *testing.T) {
	OrdersPending.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(OrdersPending))
	OrdersPending.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(OrdersPending))
}
