// Package kafka relays payment notifications to a Kafka topic.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
)

// Publisher writes notifications to a single topic. Messages with the same
// key land on the same partition, so events of one intent stay ordered.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a synchronous publisher for topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.ReferenceHash{},
			BatchSize:              defaultBatchSize,
			BatchTimeout:           defaultBatchTimeout,
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			AllowAutoTopicCreation: false,
		},
	}
}

// Publish writes one message and waits for the brokers to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
