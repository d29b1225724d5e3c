// Package sqlstore implements storage.Driver on top of database/sql.
// The sqlite and postgres drivers embed it and differ only in how the
// connection is opened and in the schema DDL dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
)

// Dialect selects placeholder style for the underlying database.
type Dialect int

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota

	// DialectPostgres uses $n placeholders.
	DialectPostgres
)

// Store is a database/sql-backed storage.Driver.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// rebind converts ?-style placeholders to the store's dialect.
func (s *Store) rebind(query string) string {
	if s.Dialect == DialectSQLite {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) CreateProject(ctx context.Context, project *kb.Project) error {
	if project == nil {
		return errors.New("cannot store nil project")
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`),
		project.ID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*kb.Project, error) {
	row := s.DB.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, description, created_at, updated_at
		 FROM projects WHERE id = ?`), id)

	var p kb.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "project", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*kb.Project, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*kb.Project
	for rows.Next() {
		var p kb.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, project *kb.Project) error {
	res, err := s.DB.ExecContext(ctx, s.rebind(
		`UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		project.Name, project.Description, project.UpdatedAt, project.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return requireAffected(res, "project", project.ID)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return requireAffected(res, "project", id)
}

func (s *Store) PutNode(ctx context.Context, node *kb.Node) error {
	if node == nil {
		return errors.New("cannot store nil node")
	}

	tags, err := json.Marshal(node.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	links, err := json.Marshal(node.Links)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, s.rebind(
		`INSERT INTO nodes (id, project_id, title, content, kind, tags, links, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   content = excluded.content,
		   kind = excluded.kind,
		   tags = excluded.tags,
		   links = excluded.links,
		   updated_at = excluded.updated_at`),
		node.ID, node.ProjectID, node.Title, node.Content, string(node.Kind),
		string(tags), string(links), node.CreatedAt, node.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting node: %w", err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (*kb.Node, error) {
	row := s.DB.QueryRowContext(ctx, s.rebind(
		`SELECT id, project_id, title, content, kind, tags, links, created_at, updated_at
		 FROM nodes WHERE id = ?`), id)

	node, err := scanNode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "node", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (s *Store) ListNodes(ctx context.Context, projectID string) ([]*kb.Node, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(
		`SELECT id, project_id, title, content, kind, tags, links, created_at, updated_at
		 FROM nodes WHERE project_id = ? ORDER BY created_at DESC`), projectID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*kb.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return requireAffected(res, "node", id)
}

func (s *Store) CreateConversation(ctx context.Context, conv *kb.Conversation) error {
	if conv == nil {
		return errors.New("cannot store nil conversation")
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(
		`INSERT INTO conversations (id, project_id, title, created_at) VALUES (?, ?, ?, ?)`),
		conv.ID, conv.ProjectID, conv.Title, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*kb.Conversation, error) {
	row := s.DB.QueryRowContext(ctx, s.rebind(
		`SELECT id, project_id, title, created_at FROM conversations WHERE id = ?`), id)

	var c kb.Conversation
	err := row.Scan(&c.ID, &c.ProjectID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, projectID string) ([]*kb.Conversation, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(
		`SELECT id, project_id, title, created_at
		 FROM conversations WHERE project_id = ? ORDER BY created_at DESC`), projectID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []*kb.Conversation
	for rows.Next() {
		var c kb.Conversation
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, &c)
	}
	return convs, rows.Err()
}

func (s *Store) AppendMessage(ctx context.Context, msg *kb.Message) error {
	if msg == nil {
		return errors.New("cannot store nil message")
	}

	if _, err := s.GetConversation(ctx, msg.ConversationID); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(
		`INSERT INTO messages (id, conversation_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*kb.Message, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY seq ASC`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []*kb.Message{}
	for rows.Next() {
		var m kb.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func scanNode(scan func(dest ...any) error) (*kb.Node, error) {
	var (
		node        kb.Node
		kind        string
		tags, links string
	)
	if err := scan(&node.ID, &node.ProjectID, &node.Title, &node.Content, &kind,
		&tags, &links, &node.CreatedAt, &node.UpdatedAt); err != nil {
		return nil, err
	}

	node.Kind = kb.NodeKind(kind)
	if err := json.Unmarshal([]byte(tags), &node.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(links), &node.Links); err != nil {
		return nil, fmt.Errorf("decoding links: %w", err)
	}
	return &node, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return storage.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
