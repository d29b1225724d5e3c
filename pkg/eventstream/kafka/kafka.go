// Package kafka publishes node events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lorebookhq/lorebook/pkg/eventstream"
)

// DefaultTopic is the topic node events are published to when none is configured.
const DefaultTopic = "lorebook.nodes"

// Publisher writes node events to Kafka. Messages are keyed by node ID so a
// node's history lands on one partition in order.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka publisher initialized", "brokers", cfg.Brokers, "topic", topic)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishNode encodes the event as JSON and writes it keyed by node ID.
func (p *Publisher) PublishNode(ctx context.Context, event *eventstream.NodePersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilNodeEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding node event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Node.ID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing node event: %w", err)
	}

	p.logger.Debug("published node event",
		"event_id", event.EventID,
		"node_id", event.Node.ID,
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
