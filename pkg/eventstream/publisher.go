package eventstream

import "context"

// Publisher publishes node events to an event stream backend.
type Publisher interface {
	PublishNode(ctx context.Context, event *NodePersistedEvent) error
	Close() error
}
