// Package kb defines the core knowledge-base domain model: projects,
// knowledge nodes, and conversations. Everything stored or served by
// lorebook is expressed in these types.
package kb

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NodeKind classifies a knowledge node.
type NodeKind string

const (
	// KindNote is a regular knowledge-base entry.
	KindNote NodeKind = "note"

	// KindDraft is a markdown draft synced from the local drafts directory.
	KindDraft NodeKind = "draft"

	// KindArtifact is a generated document, e.g. a research report.
	KindArtifact NodeKind = "artifact"
)

// Project groups nodes and conversations under a single workspace.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node is a single knowledge-base entry. Links reference other node IDs
// within the same project and form the edges of the project graph.
type Node struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Kind      NodeKind  `json:"kind"`
	Tags      []string  `json:"tags,omitempty"`
	Links     []string  `json:"links,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversation is a chat thread scoped to a project.
type Conversation struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewProject creates a project with a fresh ID and timestamps.
func NewProject(name, description string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewNode creates a node of the given kind with a fresh ID and timestamps.
func NewNode(projectID, title, content string, kind NodeKind) *Node {
	now := time.Now().UTC()
	return &Node{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Content:   content,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewConversation creates a conversation with a fresh ID.
func NewConversation(projectID, title string) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// NewMessage creates a message with a fresh ID.
func NewMessage(conversationID, role, content string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

// Preview returns the first maxRunes runes of the node content with
// newlines collapsed, suitable for list views and search results.
func (n *Node) Preview(maxRunes int) string {
	text := strings.Join(strings.Fields(n.Content), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LinkTo appends a link to the target node ID if not already present.
func (n *Node) LinkTo(targetID string) {
	for _, l := range n.Links {
		if l == targetID {
			return
		}
	}
	n.Links = append(n.Links, targetID)
}

// EmbeddingText returns the text representation used when embedding the
// node for semantic search: the title followed by the content.
func (n *Node) EmbeddingText() string {
	if n.Content == "" {
		return n.Title
	}
	return n.Title + "\n\n" + n.Content
}
