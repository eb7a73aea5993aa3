//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

type OrderRecorderSuite struct {
	suite.Suite
	container testcontainers.Container
	recorder  *OrderRecorder
}

func (s *OrderRecorderSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "test_cryptospreadedge",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_cryptospreadedge sslmode=disable", host, port.Port())
	recorder, err := NewOrderRecorder(dsn, logger.New("test"))
	s.Require().NoError(err)
	s.recorder = recorder

	_, err = recorder.db.Exec(`
		CREATE TABLE orders (
			id TEXT PRIMARY KEY, venue_id TEXT, symbol TEXT, side TEXT, type TEXT,
			qty NUMERIC, px NUMERIC, stop_px NUMERIC, filled_qty NUMERIC, avg_px NUMERIC,
			status TEXT, venue TEXT, execution_id TEXT, created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ
		)
	`)
	s.Require().NoError(err)
}

func (s *OrderRecorderSuite) TearDownSuite() {
	s.Require().NoError(s.recorder.Close())
	s.Require().NoError(s.container.Terminate(context.Background()))
}

func (s *OrderRecorderSuite) TestRecordAndGetOrder() {
	ctx := context.Background()
	order := domain.Order{
		ID: "ord-1", Symbol: "BTC/USDT", Side: domain.SideBuy, Type: domain.OrderTypeLimit,
		Qty: decimal.NewFromInt(1), Px: decimal.NewFromInt(50000), Status: domain.OrderStatusPending,
		Venue: "binance", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.Require().NoError(s.recorder.RecordOrder(ctx, order))

	got, err := s.recorder.GetOrder(ctx, "ord-1")
	s.Require().NoError(err)
	s.Equal(order.Symbol, got.Symbol)
	s.True(order.Qty.Equal(got.Qty))

	order.Status = domain.OrderStatusFilled
	order.FilledQty = decimal.NewFromInt(1)
	s.Require().NoError(s.recorder.RecordOrder(ctx, order))

	got, err = s.recorder.GetOrder(ctx, "ord-1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusFilled, got.Status)
}

func TestOrderRecorderSuite(t *testing.T) {
	suite.Run(t, new(OrderRecorderSuite))
}
