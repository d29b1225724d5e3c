package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lorebookhq/lorebook/pkg/eventstream"
	"github.com/lorebookhq/lorebook/pkg/graph"
	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/vector"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// CreateProjectRequest is the body of POST /v1/projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// handleCreateProject creates a new project.
func (s *Server) handleCreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "project name is required"})
	}

	project := kb.NewProject(req.Name, req.Description)
	if err := s.storer.CreateProject(c.Context(), project); err != nil {
		s.logger.Error("failed to create project", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create project"})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// handleListProjects returns all projects, newest first.
func (s *Server) handleListProjects(c *fiber.Ctx) error {
	projects, err := s.storer.ListProjects(c.Context())
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list projects"})
	}
	if projects == nil {
		projects = []*kb.Project{}
	}
	return c.JSON(projects)
}

// handleGetProject returns a single project by ID.
func (s *Server) handleGetProject(c *fiber.Ctx) error {
	project, err := s.storer.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return s.storageError(c, err, "failed to get project")
	}
	return c.JSON(project)
}

// handleDeleteProject removes a project and everything under it.
func (s *Server) handleDeleteProject(c *fiber.Ctx) error {
	id := c.Params("id")

	// Collect node IDs first so the vector index can be cleaned up after
	// the storage delete succeeds.
	nodes, err := s.storer.ListNodes(c.Context(), id)
	if err != nil {
		s.logger.Warn("failed to list nodes before project delete", "project_id", id, "error", err)
	}

	if err := s.storer.DeleteProject(c.Context(), id); err != nil {
		return s.storageError(c, err, "failed to delete project")
	}

	if s.config.VectorDriver != nil && len(nodes) > 0 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		if err := s.config.VectorDriver.Delete(c.Context(), ids); err != nil {
			s.logger.Warn("failed to remove project vectors", "project_id", id, "error", err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CreateNodeRequest is the body of POST /v1/projects/:id/nodes.
type CreateNodeRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Links   []string `json:"links,omitempty"`
}

// handleCreateNode creates a node in a project.
func (s *Server) handleCreateNode(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if _, err := s.storer.GetProject(c.Context(), projectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	var req CreateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "node title is required"})
	}

	kind := kb.NodeKind(req.Kind)
	if kind == "" {
		kind = kb.KindNote
	}
	switch kind {
	case kb.KindNote, kb.KindDraft, kb.KindArtifact:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown node kind: " + req.Kind})
	}

	node := kb.NewNode(projectID, req.Title, req.Content, kind)
	node.Tags = req.Tags
	node.Links = req.Links

	if err := s.persistNode(c.Context(), node); err != nil {
		s.logger.Error("failed to create node", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create node"})
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// handleListNodes returns the nodes of a project, newest first.
func (s *Server) handleListNodes(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if _, err := s.storer.GetProject(c.Context(), projectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	nodes, err := s.storer.ListNodes(c.Context(), projectID)
	if err != nil {
		s.logger.Error("failed to list nodes", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list nodes"})
	}
	if nodes == nil {
		nodes = []*kb.Node{}
	}
	return c.JSON(nodes)
}

// handleGetNode returns a single node by ID.
func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.storer.GetNode(c.Context(), c.Params("id"))
	if err != nil {
		return s.storageError(c, err, "failed to get node")
	}
	return c.JSON(node)
}

// UpdateNodeRequest is the body of PATCH /v1/nodes/:id. Pointer fields
// distinguish "not sent" from "set to empty".
type UpdateNodeRequest struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Kind    *string   `json:"kind,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Links   *[]string `json:"links,omitempty"`
}

// handleUpdateNode replaces a node's mutable fields.
func (s *Server) handleUpdateNode(c *fiber.Ctx) error {
	node, err := s.storer.GetNode(c.Context(), c.Params("id"))
	if err != nil {
		return s.storageError(c, err, "failed to get node")
	}

	var req UpdateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Title != nil {
		if *req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "node title cannot be empty"})
		}
		node.Title = *req.Title
	}
	if req.Content != nil {
		node.Content = *req.Content
	}
	if req.Kind != nil {
		kind := kb.NodeKind(*req.Kind)
		switch kind {
		case kb.KindNote, kb.KindDraft, kb.KindArtifact:
			node.Kind = kind
		default:
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown node kind: " + *req.Kind})
		}
	}
	if req.Tags != nil {
		node.Tags = *req.Tags
	}
	if req.Links != nil {
		node.Links = *req.Links
	}
	node.UpdatedAt = time.Now().UTC()

	if err := s.persistNode(c.Context(), node); err != nil {
		s.logger.Error("failed to update node", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to update node"})
	}

	return c.JSON(node)
}

// handleDeleteNode removes a node by ID.
func (s *Server) handleDeleteNode(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.storer.DeleteNode(c.Context(), id); err != nil {
		return s.storageError(c, err, "failed to delete node")
	}

	if s.config.VectorDriver != nil {
		if err := s.config.VectorDriver.Delete(c.Context(), []string{id}); err != nil {
			s.logger.Warn("failed to remove node vector", "node_id", id, "error", err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleGraph returns the link graph of a project's nodes.
func (s *Server) handleGraph(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if _, err := s.storer.GetProject(c.Context(), projectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	nodes, err := s.storer.ListNodes(c.Context(), projectID)
	if err != nil {
		s.logger.Error("failed to list nodes for graph", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to build graph"})
	}

	g := graph.Build(nodes)
	if g.Nodes == nil {
		g.Nodes = []graph.Node{}
	}
	if g.Edges == nil {
		g.Edges = []graph.Edge{}
	}
	return c.JSON(g)
}

// CreateConversationRequest is the body of POST /v1/conversations.
type CreateConversationRequest struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title,omitempty"`
}

// handleCreateConversation creates a conversation in a project.
func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.ProjectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "project_id is required"})
	}
	if _, err := s.storer.GetProject(c.Context(), req.ProjectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	conv := kb.NewConversation(req.ProjectID, req.Title)
	if err := s.storer.CreateConversation(c.Context(), conv); err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

// handleListConversations returns a project's conversations, newest first.
// The project is selected with the required project_id query parameter.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "project_id parameter is required"})
	}

	convs, err := s.storer.ListConversations(c.Context(), projectID)
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list conversations"})
	}
	if convs == nil {
		convs = []*kb.Conversation{}
	}
	return c.JSON(convs)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, err := s.storer.GetConversation(c.Context(), c.Params("id"))
	if err != nil {
		return s.storageError(c, err, "failed to get conversation")
	}
	return c.JSON(conv)
}

// handleListMessages returns a conversation's messages, oldest first.
func (s *Server) handleListMessages(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.storer.GetConversation(c.Context(), id); err != nil {
		return s.storageError(c, err, "failed to get conversation")
	}

	messages, err := s.storer.ListMessages(c.Context(), id)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list messages"})
	}
	if messages == nil {
		messages = []*kb.Message{}
	}
	return c.JSON(messages)
}

// persistNode writes a node through the storage driver and fans out the
// side effects: the vector index upsert and the node-persisted event.
// Side-effect failures are logged, not returned; the node is already durable.
func (s *Server) persistNode(ctx context.Context, node *kb.Node) error {
	if err := s.storer.PutNode(ctx, node); err != nil {
		return err
	}

	s.fanoutNode(ctx, node, "api")
	return nil
}

// fanoutNode indexes a freshly persisted node in the vector store and
// publishes its node-persisted event.
func (s *Server) fanoutNode(ctx context.Context, node *kb.Node, origin string) {
	if s.config.Embedder != nil && s.config.VectorDriver != nil {
		embedding, err := s.config.Embedder.Embed(ctx, node.EmbeddingText())
		if err != nil {
			s.logger.Warn("failed to embed node", "node_id", node.ID, "error", err)
		} else {
			doc := vector.Document{ID: node.ID, ProjectID: node.ProjectID, Embedding: embedding}
			if err := s.config.VectorDriver.Add(ctx, []vector.Document{doc}); err != nil {
				s.logger.Warn("failed to index node", "node_id", node.ID, "error", err)
			}
		}
	}

	if s.config.Publisher != nil {
		event := eventstream.NewNodePersisted(node, origin)
		if err := s.config.Publisher.PublishNode(ctx, event); err != nil {
			s.logger.Warn("failed to publish node event", "node_id", node.ID, "error", err)
		}
	}
}

// storageError maps storage errors onto HTTP statuses: not-found becomes
// 404, everything else 500.
func (s *Server) storageError(c *fiber.Ctx, err error, msg string) error {
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: nf.Error()})
	}

	s.logger.Error(msg, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}
