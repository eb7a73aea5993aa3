package venues

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

func TestBinanceCodecRoundTrip(t *testing.T) {
	c := binanceCodec{}
	assert.Equal(t, "BTCUSDT", c.ToVenue("BTC/USDT"))
	assert.Equal(t, "BTC/USDT", c.FromVenue("BTCUSDT"))
	assert.Equal(t, "ETH/BTC", c.FromVenue("ETHBTC"))
}

func TestSyntheticMidDiffersBySymbolButIsDeterministic(t *testing.T) {
	a := syntheticMid("BTC/USDT")
	b := syntheticMid("BTC/USDT")
	c := syntheticMid("ETH/USDT")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func newTestCEX() connector.Connector {
	return NewBinance(connector.Credentials{}, logger.New("test"), nil, concurrency.DefaultRetryConfig(), nil)
}

func TestRESTCEXPlaceOrderFillsMarketOrder(t *testing.T) {
	conn := newTestCEX()
	order, err := conn.PlaceOrder(context.Background(), connector.PlaceOrderRequest{
		ClientOrderID: "c1", Symbol: "BTC/USDT", Side: domain.SideBuy,
		Type: domain.OrderTypeMarket, Qty: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assert.True(t, order.AvgPx.IsPositive())
	assert.True(t, order.FilledQty.Equal(decimal.NewFromInt(1)))
}

func TestRESTCEXPlaceOrderRejectsMalformedRequest(t *testing.T) {
	conn := newTestCEX()
	_, err := conn.PlaceOrder(context.Background(), connector.PlaceOrderRequest{Symbol: "BTC/USDT"})
	assert.Error(t, err)
}

func TestRESTCEXPlaceOrderRejectsLimitWithoutPrice(t *testing.T) {
	conn := newTestCEX()
	_, err := conn.PlaceOrder(context.Background(), connector.PlaceOrderRequest{
		Symbol: "BTC/USDT", Side: domain.SideBuy, Type: domain.OrderTypeLimit, Qty: decimal.NewFromInt(1),
	})
	assert.Error(t, err)
}

func TestRESTCEXCancelOrderRejectsUnknownAndTerminal(t *testing.T) {
	conn := newTestCEX()
	order, err := conn.PlaceOrder(context.Background(), connector.PlaceOrderRequest{
		ClientOrderID: "c2", Symbol: "BTC/USDT", Side: domain.SideSell,
		Type: domain.OrderTypeMarket, Qty: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	assert.Error(t, conn.CancelOrder(context.Background(), "missing"))
	// order was simulated as immediately filled, which is terminal.
	assert.Error(t, conn.CancelOrder(context.Background(), order.VenueID))
}

func TestRESTCEXGetOrderStatusReturnsKnownOrder(t *testing.T) {
	conn := newTestCEX()
	placed, err := conn.PlaceOrder(context.Background(), connector.PlaceOrderRequest{
		ClientOrderID: "c3", Symbol: "ETH/USDT", Side: domain.SideBuy,
		Type: domain.OrderTypeMarket, Qty: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	got, err := conn.GetOrderStatus(context.Background(), placed.VenueID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
}

func TestRESTCEXGetBalancesReturnsSeedData(t *testing.T) {
	conn := newTestCEX()
	balances, err := conn.GetBalances(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, balances)
}

func TestRESTCEXGetOrderBookProducesSortedLevels(t *testing.T) {
	conn := newTestCEX()
	book, err := conn.GetOrderBook(context.Background(), "BTC/USDT", 5)
	require.NoError(t, err)
	require.Len(t, book.Bids, 5)
	require.Len(t, book.Asks, 5)
	assert.True(t, book.Bids[0].Price.GreaterThan(book.Bids[1].Price))
	assert.True(t, book.Asks[0].Price.LessThan(book.Asks[1].Price))
}

func TestEachVenueConstructorIsNamedCorrectly(t *testing.T) {
	log := logger.New("test")
	retry := concurrency.DefaultRetryConfig()
	cases := map[string]connector.Connector{
		"binance":  NewBinance(connector.Credentials{}, log, nil, retry, nil),
		"coinbase": NewCoinbase(connector.Credentials{}, log, nil, retry, nil),
		"kraken":   NewKraken(connector.Credentials{}, log, nil, retry, nil),
		"okx":      NewOKX(connector.Credentials{}, log, nil, retry, nil),
	}
	for want, conn := range cases {
		assert.Equal(t, want, conn.Name())
	}
}
