package kafka

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
)

// ProducerAPI is the publishing surface used by services. Events published
// through it are best-effort; callers log and swallow failures.
type ProducerAPI interface {
	Publish(ctx context.Context, topic string, key, message []byte) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for a comma-separated broker list.
func NewProducer(brokers string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(brokers, ",")...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: w}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, message []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: message,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
