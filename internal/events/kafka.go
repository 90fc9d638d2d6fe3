package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON events to one topic. With no brokers configured it
// accepts and drops every event.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return &Publisher{}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		timeout: 5 * time.Second,
	}
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// Publish keys the message so events for one cart stay ordered in a partition.
func (p *Publisher) Publish(ctx context.Context, key string, event interface{}) error {
	if p.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Invalidation is published when a webhook drops a cache tag.
type Invalidation struct {
	Type  string    `json:"type"`
	Tag   string    `json:"tag"`
	Topic string    `json:"topic"`
	Keys  int       `json:"keys"`
	At    time.Time `json:"at"`
}
