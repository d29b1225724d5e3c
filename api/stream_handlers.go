package api

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/llm"
	"github.com/lorebookhq/lorebook/pkg/research"
	"github.com/lorebookhq/lorebook/pkg/sse"
)

const chatSystemPrompt = "You are the lorebook assistant, answering questions " +
	"over a personal knowledge base. Ground your answers in the provided context " +
	"notes and cite note titles inline. Say so when the notes do not cover the question."

// citationTopK is how many context notes a chat turn is grounded on.
const citationTopK = 3

// Chat stream event tags.
const (
	chatEventToken    = "token"
	chatEventCitation = "citation"
	eventDone         = "done"
	eventError        = "error"
)

// chatEvent is one frame of the chat stream.
type chatEvent struct {
	Event  string         `json:"event"`
	Text   string         `json:"text,omitempty"`
	Nodes  []citationNode `json:"nodes,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

// citationNode references a library node used to ground a chat answer.
type citationNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// researchEvent is one frame of the research stream.
type researchEvent struct {
	Event      string `json:"event"`
	Node       string `json:"node,omitempty"`
	Status     string `json:"status,omitempty"`
	Report     string `json:"report,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ChatStreamRequest is the body of POST /v1/chat/stream.
type ChatStreamRequest struct {
	ProjectID      string `json:"project_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// handleChatStream answers a chat turn as an SSE stream: an optional
// citation event, token events as the reply generates, then done.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	if s.config.Provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "chat is not configured: an LLM provider is required",
		})
	}

	var req ChatStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}
	if _, err := s.storer.GetProject(c.Context(), req.ProjectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	var conv *kb.Conversation
	if req.ConversationID != "" {
		existing, err := s.storer.GetConversation(c.Context(), req.ConversationID)
		if err != nil {
			return s.storageError(c, err, "failed to get conversation")
		}
		conv = existing
	} else {
		conv = kb.NewConversation(req.ProjectID, conversationTitle(req.Message))
		if err := s.storer.CreateConversation(c.Context(), conv); err != nil {
			s.logger.Error("failed to create conversation", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create conversation"})
		}
	}

	// Prior turns, oldest first, before this turn's user message is appended.
	history, err := s.storer.ListMessages(c.Context(), conv.ID)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load conversation"})
	}

	userMsg := kb.NewMessage(conv.ID, kb.RoleUser, req.Message)
	if err := s.storer.AppendMessage(c.Context(), userMsg); err != nil {
		s.logger.Error("failed to append message", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store message"})
	}

	setStreamHeaders(c)

	// The goroutine outlives this handler, and fasthttp reuses the request
	// context once the handler returns, so it must not touch c.
	pr, pw := io.Pipe()
	go s.streamChat(pw, conv, history, req.Message)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp;
	// io.Pipe gives direct backpressure and true per-event streaming.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) streamChat(pw *io.PipeWriter, conv *kb.Conversation, history []*kb.Message, message string) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sse.NewWriter(pw)

	citations, contextNotes := s.gatherCitations(ctx, conv.ProjectID, message)
	if len(citations) > 0 {
		if err := w.Send(chatEvent{Event: chatEventCitation, Nodes: citations}); err != nil {
			return
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.NewTextMessage(m.Role, m.Content))
	}
	messages = append(messages, llm.NewTextMessage(kb.RoleUser, message))

	system := chatSystemPrompt
	if contextNotes != "" {
		system += "\n\nContext notes:\n\n" + contextNotes
	}

	chunks, err := s.config.Provider.Stream(ctx, llm.ChatRequest{
		System:   system,
		Messages: messages,
	})
	if err != nil {
		s.logger.Error("failed to start chat stream", "error", err)
		_ = w.Send(chatEvent{Event: eventError, Detail: "chat provider unavailable"})
		return
	}

	var reply strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			s.logger.Error("chat stream failed", "error", chunk.Err)
			_ = w.Send(chatEvent{Event: eventError, Detail: chunk.Err.Error()})
			return
		}
		if chunk.Content != "" {
			reply.WriteString(chunk.Content)
			if err := w.Send(chatEvent{Event: chatEventToken, Text: chunk.Content}); err != nil {
				// Client went away; stop the provider and drain.
				cancel()
				for range chunks {
				}
				return
			}
		}
		if chunk.Done {
			break
		}
	}

	assistantMsg := kb.NewMessage(conv.ID, kb.RoleAssistant, reply.String())
	if err := s.storer.AppendMessage(ctx, assistantMsg); err != nil {
		s.logger.Error("failed to store assistant reply", "conversation_id", conv.ID, "error", err)
	}

	_ = w.Send(chatEvent{Event: eventDone})
}

// gatherCitations retrieves the context notes grounding a chat turn. Both
// return values are empty when the search stack is not configured or the
// lookup fails; chat degrades to an uncited answer.
func (s *Server) gatherCitations(ctx context.Context, projectID, message string) ([]citationNode, string) {
	if s.config.Embedder == nil || s.config.VectorDriver == nil {
		return nil, ""
	}

	embedding, err := s.config.Embedder.Embed(ctx, message)
	if err != nil {
		s.logger.Warn("failed to embed chat message", "error", err)
		return nil, ""
	}

	results, err := s.config.VectorDriver.Query(ctx, embedding, citationTopK*2)
	if err != nil {
		s.logger.Warn("failed to query vector store for chat", "error", err)
		return nil, ""
	}

	var citations []citationNode
	var notes strings.Builder
	for _, r := range results {
		if r.ProjectID != "" && r.ProjectID != projectID {
			continue
		}
		node, err := s.storer.GetNode(ctx, r.ID)
		if err != nil {
			continue
		}
		citations = append(citations, citationNode{ID: node.ID, Title: node.Title})
		fmt.Fprintf(&notes, "## %s\n%s\n\n", node.Title, node.Content)
		if len(citations) == citationTopK {
			break
		}
	}

	return citations, notes.String()
}

// ResearchStreamRequest is the body of POST /v1/research/stream.
type ResearchStreamRequest struct {
	ProjectID string `json:"project_id"`
	Goal      string `json:"goal"`
	Depth     int    `json:"depth,omitempty"`
}

// handleResearchStream runs a research session as an SSE stream: status and
// node progress events while the walk runs, then done with the report.
func (s *Server) handleResearchStream(c *fiber.Ctx) error {
	var req ResearchStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Goal == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "goal is required"})
	}
	if _, err := s.storer.GetProject(c.Context(), req.ProjectID); err != nil {
		return s.storageError(c, err, "failed to get project")
	}

	setStreamHeaders(c)

	pr, pw := io.Pipe()
	go s.streamResearch(pw, research.Request{
		ProjectID: req.ProjectID,
		Goal:      req.Goal,
		Depth:     req.Depth,
	})

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) streamResearch(pw *io.PipeWriter, req research.Request) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sse.NewWriter(pw)

	// Progress callbacks run synchronously on the research goroutine, so
	// clientGone needs no lock.
	clientGone := false
	onProgress := func(p research.Progress) {
		if clientGone {
			return
		}
		ev := researchEvent{Event: "status", Status: p.Status}
		if p.Node != nil {
			ev.Event = "node"
			ev.Node = p.Node.ID
		}
		if err := w.Send(ev); err != nil {
			clientGone = true
			cancel()
		}
	}

	result, err := s.research.Run(ctx, req, onProgress)
	if err != nil {
		if !clientGone {
			s.logger.Error("research run failed", "error", err)
			_ = w.Send(researchEvent{Event: eventError, Detail: err.Error()})
		}
		return
	}

	// The agent persists the artifact itself; fan out its index entry and
	// event here.
	if artifact, err := s.storer.GetNode(ctx, result.ArtifactID); err == nil {
		s.fanoutNode(ctx, artifact, "research")
	}

	if clientGone {
		return
	}
	_ = w.Send(researchEvent{
		Event:      eventDone,
		Report:     result.Report,
		ArtifactID: result.ArtifactID,
	})
}

// setStreamHeaders marks the response as a server-sent event stream.
func setStreamHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
}

// conversationTitle derives a conversation title from its opening message.
func conversationTitle(message string) string {
	const maxRunes = 60
	title := strings.Join(strings.Fields(message), " ")
	runes := []rune(title)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "…"
	}
	return title
}
