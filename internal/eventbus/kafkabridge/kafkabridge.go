// Package kafkabridge mirrors events published on the Redis event bus onto
// Kafka topics for durable, long-retention downstream consumers (audit
// trail, analytics) that don't want Redis Streams' shorter retention.
package kafkabridge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/kafka"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// streamTopics maps a bus stream name to the Kafka topic it mirrors onto,
// covering the durable/audit-worthy streams (§4.9): opportunities,
// executions, and every orders.* and positions.* substream.
var streamTopics = map[string]string{
	eventbus.StreamOpportunities:   "cryptospreadedge.arbitrage.opportunities",
	eventbus.StreamExecutions:      "cryptospreadedge.arbitrage.executions",
	eventbus.StreamOrders:          "cryptospreadedge.orders.submitted",
	eventbus.StreamOrdersUpdated:   "cryptospreadedge.orders.updated",
	eventbus.StreamOrdersExecuted:  "cryptospreadedge.orders.executed",
	eventbus.StreamOrdersCancelled: "cryptospreadedge.orders.cancelled",
	eventbus.StreamPositionsOpened: "cryptospreadedge.positions.opened",
	eventbus.StreamPositionsClosed: "cryptospreadedge.positions.closed",
	eventbus.StreamAlertsMarketAbuse: "cryptospreadedge.alerts.market-abuse",
}

// Bridge forwards event-bus messages onto Kafka.
type Bridge struct {
	producer kafka.Producer
	logger   *logger.Logger
}

func New(producer kafka.Producer, log *logger.Logger) *Bridge {
	return &Bridge{producer: producer, logger: log.Named("kafkabridge")}
}

// TopicFor returns the Kafka topic a given bus stream mirrors onto, and
// whether one is configured.
func TopicFor(stream string) (string, bool) {
	topic, ok := streamTopics[stream]
	return topic, ok
}

// Mirror is an eventbus.Handler: register it against a stream/group/
// consumer via Bus.Consume to have every acked message also land on
// Kafka. A failed Kafka push is logged and does not fail the bus ack —
// Kafka is a best-effort secondary sink, not the system of record; only a
// JSON marshal error is returned, which leaves the message unacked.
func (b *Bridge) Mirror(stream string) func(ctx context.Context, values map[string]interface{}) error {
	topic, ok := TopicFor(stream)
	if !ok {
		topic = "cryptospreadedge." + strings.ReplaceAll(stream, ".", "-")
	}

	return func(ctx context.Context, values map[string]interface{}) error {
		data, err := json.Marshal(values)
		if err != nil {
			return errors.Wrap(errors.InternalError, err, "marshaling event for kafka mirror")
		}
		if err := b.producer.PushToQueue(topic, data); err != nil {
			b.logger.Warn("kafka mirror failed - topic: %s, err: %v", topic, err)
			return nil
		}
		return nil
	}
}
