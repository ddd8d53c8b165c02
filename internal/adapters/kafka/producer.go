package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// Producer publishes JSON messages to a single topic
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           cfg.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
		topic: cfg.Topic,
		log:   logger.Get().With("component", "kafka_producer", "topic", cfg.Topic),
	}
}

// Publish marshals value and writes it under key. Messages sharing a key keep their order.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal kafka message")
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		p.log.Warnw("Failed to publish", "key", key, "error", err)
		return errors.Wrapf(err, "publish to %s", p.topic)
	}

	p.log.Debugw("Published", "key", key)
	return nil
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
