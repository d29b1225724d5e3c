package nop

import (
	"context"

	"github.com/lorebookhq/lorebook/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishNode validates input and otherwise does nothing.
func (p *Publisher) PublishNode(_ context.Context, event *eventstream.NodePersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilNodeEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
