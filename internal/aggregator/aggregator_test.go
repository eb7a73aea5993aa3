package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/source"
	"github.com/cryptospreadedge/platform/pkg/cache"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type stubSource struct {
	name string
	data map[string]domain.Ticker
}

func (s stubSource) Name() string { return s.name }
func (s stubSource) GetMarketData(context.Context, []string) (map[string]domain.Ticker, error) {
	return s.data, nil
}

func TestReconcileAveragesAgreeingSources(t *testing.T) {
	perSource := map[string]map[string]domain.Ticker{
		"a": {"BTC/USDT": tick(100, 99, 101)},
		"b": {"BTC/USDT": tick(102, 101, 103)},
	}
	quote, ok := reconcile("BTC/USDT", perSource)
	require.True(t, ok)
	mid, _ := quote.Mid.Float64()
	assert.InDelta(t, 101, mid, 0.001)
	assert.ElementsMatch(t, []string{"a", "b"}, quote.SourcesUsed)
}

func TestReconcileDropsOutlierBeyondThreeSigma(t *testing.T) {
	perSource := map[string]map[string]domain.Ticker{
		"a": {"BTC/USDT": tick(100, 99, 101)},
		"b": {"BTC/USDT": tick(100.5, 99.5, 101.5)},
		"c": {"BTC/USDT": tick(101, 100, 102)},
		"d": {"BTC/USDT": tick(100000, 99999, 100001)}, // wild outlier
	}
	quote, ok := reconcile("BTC/USDT", perSource)
	require.True(t, ok)
	mid, _ := quote.Mid.Float64()
	assert.Less(t, mid, float64(1000))
	assert.NotContains(t, quote.SourcesUsed, "d")
}

func TestReconcileReturnsFalseWithNoCandidates(t *testing.T) {
	_, ok := reconcile("BTC/USDT", map[string]map[string]domain.Ticker{})
	assert.False(t, ok)
}

func TestMeanStddevSingleValue(t *testing.T) {
	mean, stddev := meanStddev([]float64{5})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 0.0, stddev)
}

func TestCalculateConfidenceRewardsAgreement(t *testing.T) {
	tight := calculateConfidence([]float64{100, 100.1, 99.9}, 0.1)
	wide := calculateConfidence([]float64{100, 150, 50}, 50)
	assert.Greater(t, tight, wide)
}

func TestCalculateConfidenceSingleSourceIsNeutral(t *testing.T) {
	assert.Equal(t, 0.5, calculateConfidence([]float64{100}, 0))
}

func TestGetAggregatedDataWithNoConnectorsOrSourcesReturnsEmpty(t *testing.T) {
	registry := connector.NewRegistry(logger.New("test"), noopCreds{}, map[string]connector.Factory{})
	sources := source.NewRegistry(logger.New("test"))
	agg := New(registry, sources, nil, logger.New("test"))

	out, err := agg.GetAggregatedData(context.Background(), []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOpportunitiesFiltersBelowMinSpread(t *testing.T) {
	registry := connector.NewRegistry(logger.New("test"), noopCreds{}, map[string]connector.Factory{})
	sources := source.NewRegistry(logger.New("test"),
		stubSource{name: "a", data: map[string]domain.Ticker{"BTC/USDT": tick(100, 99, 101)}},
		stubSource{name: "b", data: map[string]domain.Ticker{"BTC/USDT": tick(100.01, 99, 101)}},
	)
	agg := New(registry, sources, nil, logger.New("test"))

	out, err := agg.Opportunities(context.Background(), []string{"BTC/USDT"}, 0.5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuoteSetKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, cache.QuoteSetKey([]string{"ETH/USDT", "BTC/USDT"}), cache.QuoteSetKey([]string{"BTC/USDT", "ETH/USDT"}))
}

type noopCreds struct{}

func (noopCreds) Get(context.Context, string) (connector.Credentials, error) {
	return connector.Credentials{}, nil
}

func tick(last, bid, ask float64) domain.Ticker {
	return domain.Ticker{
		Last:      decimal.NewFromFloat(last),
		Bid:       decimal.NewFromFloat(bid),
		Ask:       decimal.NewFromFloat(ask),
		Volume:    decimal.NewFromFloat(1),
		Timestamp: time.Now(),
	}
}
