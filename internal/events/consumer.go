package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"stockcrew/internal/adapters/kafka"
	"stockcrew/internal/metrics"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Handler processes one decoded pipeline event.
type Handler func(ctx context.Context, ev Event) error

// Tail reads pipeline events from Kafka until ctx ends. Undecodable
// messages are logged and skipped.
func Tail(ctx context.Context, consumer *kafka.Consumer, topic string, handle Handler) error {
	log := logger.Get().With("component", "event_tail", "topic", topic)

	err := consumer.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			metrics.RecordKafkaMessage(topic, "consume", err)
			log.Warnw("Skipping malformed event", "offset", msg.Offset, "error", err)
			return nil
		}
		metrics.RecordKafkaMessage(topic, "consume", nil)
		return handle(ctx, ev)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
