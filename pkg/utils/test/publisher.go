package testutils

import (
	"context"

	"github.com/lorebookhq/lorebook/pkg/eventstream"
)

// MockPublisher is a test event publisher that records published events.
type MockPublisher struct {
	// Events accumulates everything passed to PublishNode.
	Events []*eventstream.NodePersistedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishNode(_ context.Context, event *eventstream.NodePersistedEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
