package events

import (
	"context"

	"stockcrew/internal/adapters/kafka"
	"stockcrew/internal/metrics"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Publisher delivers pipeline events to observers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// KafkaPublisher writes events to the pipeline topic keyed by run id, so one
// run's events stay ordered.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher creates a new Kafka event publisher
func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	ev.Message = SanitizeUTF8(ev.Message)
	err := p.producer.Publish(ctx, ev.RunID, ev)
	metrics.RecordKafkaMessage(p.topic, "produce", err)
	return err
}

// Fanout publishes to every publisher. A failing sink is logged and does
// not stop the others.
type Fanout struct {
	sinks []Publisher
	log   *logger.Logger
}

// NewFanout skips nil sinks.
func NewFanout(sinks ...Publisher) *Fanout {
	f := &Fanout{log: logger.Get().With("component", "event_fanout")}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	var merr errors.MultiError
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			f.log.Warnw("Failed to publish event", "type", ev.Type, "run_id", ev.RunID, "error", err)
			merr.Add(err)
		}
	}
	return merr.ToError()
}
