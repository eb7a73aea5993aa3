package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type stubSource struct {
	name string
	data map[string]domain.Ticker
	err  error
}

func (s stubSource) Name() string { return s.name }
func (s stubSource) GetMarketData(context.Context, []string) (map[string]domain.Ticker, error) {
	return s.data, s.err
}

func TestRegistryGetAllOmitsFailingSources(t *testing.T) {
	ok := stubSource{name: "ok", data: map[string]domain.Ticker{"BTC/USDT": {Symbol: "BTC/USDT"}}}
	bad := stubSource{name: "bad", err: assert.AnError}

	reg := NewRegistry(logger.New("test"), ok, bad)
	out := reg.GetAll(context.Background(), []string{"BTC/USDT"})

	assert.Contains(t, out, "ok")
	assert.NotContains(t, out, "bad")
}

func TestRegistryGetAllEmptyWithNoSources(t *testing.T) {
	reg := NewRegistry(logger.New("test"))
	out := reg.GetAll(context.Background(), []string{"BTC/USDT"})
	assert.Empty(t, out)
}

func TestCoinGeckoReturnsDeterministicQuote(t *testing.T) {
	cg := NewCoinGecko("", concurrency.DefaultRetryConfig(), logger.New("test"))
	data, err := cg.GetMarketData(context.Background(), []string{"BTC/USDT"})
	require.NoError(t, err)
	require.Contains(t, data, "BTC/USDT")
	assert.Equal(t, "coingecko", data["BTC/USDT"].Source)
	assert.True(t, data["BTC/USDT"].Last.IsPositive())
}

func TestCoinMarketCapDiffersFromCoinGecko(t *testing.T) {
	cg := NewCoinGecko("", concurrency.DefaultRetryConfig(), logger.New("test"))
	cmc := NewCoinMarketCap("", concurrency.DefaultRetryConfig(), logger.New("test"))

	cgData, err := cg.GetMarketData(context.Background(), []string{"BTC/USDT"})
	require.NoError(t, err)
	cmcData, err := cmc.GetMarketData(context.Background(), []string{"BTC/USDT"})
	require.NoError(t, err)

	assert.NotEqual(t, cgData["BTC/USDT"].Source, cmcData["BTC/USDT"].Source)
}

func TestSyntheticSourceMidVariesBySeedAndSymbol(t *testing.T) {
	a := syntheticSourceMid("BTC/USDT", 1)
	b := syntheticSourceMid("BTC/USDT", 2)
	c := syntheticSourceMid("ETH/USDT", 1)

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
