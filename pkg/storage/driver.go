// Package storage
package storage

import (
	"context"

	"github.com/lorebookhq/lorebook/pkg/kb"
)

// Driver defines the interface for persisting and retrieving the
// knowledge-base model. Implementations live in the subpackages
// (inmemory, sqlite, postgres) and are chosen by configuration.
type Driver interface {
	// CreateProject stores a new project.
	CreateProject(ctx context.Context, project *kb.Project) error

	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, id string) (*kb.Project, error)

	// ListProjects returns all projects, newest first.
	ListProjects(ctx context.Context) ([]*kb.Project, error)

	// UpdateProject replaces a project's mutable fields.
	UpdateProject(ctx context.Context, project *kb.Project) error

	// DeleteProject removes a project and everything scoped to it.
	DeleteProject(ctx context.Context, id string) error

	// PutNode inserts or updates a node.
	PutNode(ctx context.Context, node *kb.Node) error

	// GetNode retrieves a node by ID.
	GetNode(ctx context.Context, id string) (*kb.Node, error)

	// ListNodes returns all nodes of a project, newest first.
	ListNodes(ctx context.Context, projectID string) ([]*kb.Node, error)

	// DeleteNode removes a node by ID.
	DeleteNode(ctx context.Context, id string) error

	// CreateConversation stores a new conversation.
	CreateConversation(ctx context.Context, conv *kb.Conversation) error

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id string) (*kb.Conversation, error)

	// ListConversations returns a project's conversations, newest first.
	ListConversations(ctx context.Context, projectID string) ([]*kb.Conversation, error)

	// AppendMessage appends a message to a conversation.
	AppendMessage(ctx context.Context, msg *kb.Message) error

	// ListMessages returns a conversation's messages, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]*kb.Message, error)

	// Close closes the store and releases any resources.
	Close() error
}
