// Package eventstream defines the transport-neutral events lorebook emits
// when knowledge changes, plus the Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/lorebookhq/lorebook/pkg/kb"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeNodePersisted is emitted after a knowledge node is created
	// or updated.
	EventTypeNodePersisted = "lorebook.node.persisted"
)

// NodePersistedEvent is a transport-neutral event payload for a persisted node.
type NodePersistedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Node          *kb.Node    `json:"node"`
}

// EventSource identifies where the change originated.
type EventSource struct {
	ProjectID string `json:"project_id"`
	Origin    string `json:"origin"` // "api", "drafts", "research"
}

// NewNodePersisted builds a v1 event for a freshly persisted node.
func NewNodePersisted(node *kb.Node, origin string) *NodePersistedEvent {
	return &NodePersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeNodePersisted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			ProjectID: node.ProjectID,
			Origin:    origin,
		},
		Node: node,
	}
}
