// Package inmemory provides a map-backed storage driver used for tests
// and for running the API server without a database.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	mu sync.RWMutex

	projects      map[string]*kb.Project
	nodes         map[string]*kb.Node
	conversations map[string]*kb.Conversation
	messages      map[string][]*kb.Message
}

// NewDriver creates a new in-memory storage driver.
func NewDriver() *Driver {
	return &Driver{
		projects:      make(map[string]*kb.Project),
		nodes:         make(map[string]*kb.Node),
		conversations: make(map[string]*kb.Conversation),
		messages:      make(map[string][]*kb.Message),
	}
}

func (d *Driver) CreateProject(_ context.Context, project *kb.Project) error {
	if project == nil {
		return errors.New("cannot store nil project")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.projects[project.ID] = clone(project)
	return nil
}

func (d *Driver) GetProject(_ context.Context, id string) (*kb.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	project, ok := d.projects[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "project", ID: id}
	}
	return clone(project), nil
}

func (d *Driver) ListProjects(_ context.Context) ([]*kb.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	projects := make([]*kb.Project, 0, len(d.projects))
	for _, p := range d.projects {
		projects = append(projects, clone(p))
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (d *Driver) UpdateProject(_ context.Context, project *kb.Project) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[project.ID]; !ok {
		return storage.NotFoundError{Kind: "project", ID: project.ID}
	}
	d.projects[project.ID] = clone(project)
	return nil
}

func (d *Driver) DeleteProject(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[id]; !ok {
		return storage.NotFoundError{Kind: "project", ID: id}
	}
	delete(d.projects, id)

	for nodeID, node := range d.nodes {
		if node.ProjectID == id {
			delete(d.nodes, nodeID)
		}
	}
	for convID, conv := range d.conversations {
		if conv.ProjectID == id {
			delete(d.conversations, convID)
			delete(d.messages, convID)
		}
	}
	return nil
}

func (d *Driver) PutNode(_ context.Context, node *kb.Node) error {
	if node == nil {
		return errors.New("cannot store nil node")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nodes[node.ID] = cloneNode(node)
	return nil
}

func (d *Driver) GetNode(_ context.Context, id string) (*kb.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.nodes[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "node", ID: id}
	}
	return cloneNode(node), nil
}

func (d *Driver) ListNodes(_ context.Context, projectID string) ([]*kb.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var nodes []*kb.Node
	for _, node := range d.nodes {
		if node.ProjectID == projectID {
			nodes = append(nodes, cloneNode(node))
		}
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})
	return nodes, nil
}

func (d *Driver) DeleteNode(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.nodes[id]; !ok {
		return storage.NotFoundError{Kind: "node", ID: id}
	}
	delete(d.nodes, id)
	return nil
}

func (d *Driver) CreateConversation(_ context.Context, conv *kb.Conversation) error {
	if conv == nil {
		return errors.New("cannot store nil conversation")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.conversations[conv.ID] = clone(conv)
	return nil
}

func (d *Driver) GetConversation(_ context.Context, id string) (*kb.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conv, ok := d.conversations[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}
	return clone(conv), nil
}

func (d *Driver) ListConversations(_ context.Context, projectID string) ([]*kb.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var convs []*kb.Conversation
	for _, conv := range d.conversations {
		if conv.ProjectID == projectID {
			convs = append(convs, clone(conv))
		}
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
	return convs, nil
}

func (d *Driver) AppendMessage(_ context.Context, msg *kb.Message) error {
	if msg == nil {
		return errors.New("cannot store nil message")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conversations[msg.ConversationID]; !ok {
		return storage.NotFoundError{Kind: "conversation", ID: msg.ConversationID}
	}
	d.messages[msg.ConversationID] = append(d.messages[msg.ConversationID], clone(msg))
	return nil
}

func (d *Driver) ListMessages(_ context.Context, conversationID string) ([]*kb.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	messages := make([]*kb.Message, 0, len(d.messages[conversationID]))
	for _, msg := range d.messages[conversationID] {
		messages = append(messages, clone(msg))
	}
	return messages, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// clone copies a record so callers never share memory with the store.
func clone[T any](v *T) *T {
	out := *v
	return &out
}

// cloneNode deep-copies the node's slices as well.
func cloneNode(n *kb.Node) *kb.Node {
	out := *n
	out.Tags = append([]string(nil), n.Tags...)
	out.Links = append([]string(nil), n.Links...)
	return &out
}
