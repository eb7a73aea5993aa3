// Package eventbus carries domain events (opportunities, orders,
// executions, risk alerts) between engines over Redis Streams, using
// consumer groups for at-least-once delivery (§4.9). Every stream is
// capped so a stalled consumer can't grow Redis memory unbounded.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
	"github.com/cryptospreadedge/platform/pkg/redis"
)

// Canonical stream names (§4.9).
const (
	StreamMarketDataTicks    = "market_data.ticks"
	StreamIndicatorsComputed = "indicators.computed"
	StreamSignalsGenerated   = "signals.generated"
	StreamAlertsGeneral      = "alerts.general"
	StreamAlertsMarketAbuse  = "alerts.market_abuse"
	StreamOpportunities      = "arbitrage.opportunities"
	StreamExecutions         = "arbitrage.executions"
	StreamOrders             = "orders.submitted" // submissions; updated/executed/cancelled events each have their own stream below
	StreamOrdersUpdated      = "orders.updated"
	StreamOrdersExecuted     = "orders.executed"
	StreamOrdersCancelled    = "orders.cancelled"
	StreamPositionsOpened    = "positions.opened"
	StreamPositionsClosed    = "positions.closed"
	StreamBacktestingEquity  = "backtesting.equity"
	StreamBacktestingResults = "backtesting.results"
	StreamAPIRequests        = "api.requests"
	StreamAPIErrors          = "api.errors"
)

// maxStreamLen approximately caps every stream (§4.9: "bounded/capped
// streams"); Redis trims lazily so XADD stays cheap.
const maxStreamLen = 10000

// blockDuration is how long XReadGroup waits for new entries before the
// consumer loop checks ctx.Done() again.
const blockDuration = 2 * time.Second

// Handler processes one delivered message. Returning an error leaves the
// message unacked in the group's pending entries list; Consume reads only
// new entries, so it does not deliver that message again.
type Handler func(ctx context.Context, values map[string]interface{}) error

// Bus is a thin Redis Streams publish/consume wrapper.
type Bus struct {
	client redis.Client
	logger *logger.Logger
}

func New(client redis.Client, log *logger.Logger) *Bus {
	return &Bus{client: client, logger: log.Named("eventbus")}
}

// Publish marshals payload's fields into a stream entry and XADDs it.
func (b *Bus) Publish(ctx context.Context, stream string, payload map[string]interface{}) error {
	encoded := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch v.(type) {
		case string, []byte, int, int64, float64, bool:
			encoded[k] = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return errors.Wrap(errors.InternalError, err, "marshaling event field "+k)
			}
			encoded[k] = string(data)
		}
	}

	if _, err := b.client.XAdd(ctx, stream, maxStreamLen, encoded); err != nil {
		return errors.Wrap(errors.UnavailableError, err, "publishing to "+stream)
	}
	return nil
}

// ensureGroup creates the consumer group at the tail of the stream if it
// doesn't already exist; BUSYGROUP is swallowed by the redis.Client
// implementation.
func (b *Bus) ensureGroup(ctx context.Context, stream, group string) error {
	return b.client.XGroupCreate(ctx, stream, group, "$")
}

// Consume runs handler over every message delivered to (stream, group,
// consumer) until ctx is cancelled. Each successfully-handled message is
// XACKed; a failing handler leaves it pending, and pending entries are not
// read again or claimed by this loop.
func (b *Bus) Consume(ctx context.Context, stream, group, consumer string, handler Handler) error {
	if err := b.ensureGroup(ctx, stream, group); err != nil {
		return errors.Wrap(errors.InternalError, err, "ensuring consumer group "+group)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := b.client.XReadGroup(ctx, stream, group, consumer, 10, blockDuration)
		if err != nil {
			b.logger.Warn("stream read failed - stream: %s, group: %s, err: %v", stream, group, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			if err := handler(ctx, msg.Values); err != nil {
				b.logger.Warn("handler failed, leaving unacked - stream: %s, id: %s, err: %v", stream, msg.ID, err)
				continue
			}
			if err := b.client.XAck(ctx, stream, group, msg.ID); err != nil {
				b.logger.Warn("ack failed - stream: %s, id: %s, err: %v", stream, msg.ID, err)
			}
		}
	}
}

// Len reports the current (approximate) length of stream, useful for
// health/ops surfaces.
func (b *Bus) Len(ctx context.Context, stream string) (int64, error) {
	return b.client.XLen(ctx, stream)
}
