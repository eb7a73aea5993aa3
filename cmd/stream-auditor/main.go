// Command stream-auditor tails the Kafka-mirrored topics written by the
// platform's event bus bridge and logs each message. It is a read path
// only — the mirror itself is produced with sarama in
// internal/eventbus/kafkabridge; this consumer uses segmentio/kafka-go,
// matching the reader side of the pack's other Kafka-backed services.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/eventbus/kafkabridge"
	"github.com/cryptospreadedge/platform/pkg/config"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

func main() {
	var brokers []string
	var groupID string

	root := &cobra.Command{
		Use:   "stream-auditor",
		Short: "Tail the Kafka mirror of the platform event bus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(brokers, groupID)
		},
	}
	root.Flags().StringSliceVar(&brokers, "brokers", nil, "Kafka broker addresses (defaults to config.kafka.brokers)")
	root.Flags().StringVar(&groupID, "group", "stream-auditor", "Kafka consumer group id")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(brokers []string, groupID string) error {
	log := logger.New("stream-auditor")

	if len(brokers) == 0 {
		cfg, err := config.NewLoader(config.DefaultLoaderOptions()).Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		brokers = cfg.Kafka.Brokers
	}
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	topics := mirroredTopics()
	readers := make([]*kafka.Reader, 0, len(topics))
	for _, topic := range topics {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		readers = append(readers, r)
		go auditTopic(ctx, r, log)
	}

	log.Info("stream-auditor tailing %d topics with group %s", len(topics), groupID)
	<-ctx.Done()

	for _, r := range readers {
		if err := r.Close(); err != nil {
			log.Warn("closing reader failed - topic: %s, err: %v", r.Config().Topic, err)
		}
	}
	return nil
}

func auditTopic(ctx context.Context, r *kafka.Reader, log *logger.Logger) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("read failed - topic: %s, err: %v", r.Config().Topic, err)
			continue
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Warn("undecodable message - topic: %s, offset: %d, err: %v", msg.Topic, msg.Offset, err)
			continue
		}
		log.Info("mirrored event - topic: %s, partition: %d, offset: %d, payload: %v",
			msg.Topic, msg.Partition, msg.Offset, payload)
	}
}

func mirroredTopics() []string {
	streams := []string{
		eventbus.StreamOpportunities,
		eventbus.StreamExecutions,
		eventbus.StreamOrders,
		eventbus.StreamOrdersUpdated,
		eventbus.StreamOrdersExecuted,
		eventbus.StreamOrdersCancelled,
		eventbus.StreamPositionsOpened,
		eventbus.StreamPositionsClosed,
		eventbus.StreamAlertsMarketAbuse,
	}
	topics := make([]string, 0, len(streams))
	for _, s := range streams {
		topic, _ := kafkabridge.TopicFor(s)
		topics = append(topics, topic)
	}
	return topics
}
