package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	apimcp "github.com/lorebookhq/lorebook/api/mcp"
	"github.com/lorebookhq/lorebook/pkg/research"
	"github.com/lorebookhq/lorebook/pkg/storage"
)

// Server is the API server for managing and querying the lorebook system
type Server struct {
	config   Config
	storer   storage.Driver
	logger   *slog.Logger
	app      *fiber.App
	research *research.Agent
}

// NewServer creates a new API server.
// The storer is injected to allow sharing with other components
// (e.g., the drafts watcher when not run as a singleton).
func NewServer(config Config, storer storage.Driver, logger *slog.Logger) (*Server, error) {
	if storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: logger,
		app:    app,
		research: &research.Agent{
			Storage:  storer,
			Embedder: config.Embedder,
			Vector:   config.VectorDriver,
			Provider: config.Provider,
			Logger:   logger,
		},
	}

	app.Get("/ping", s.handlePing)

	app.Post("/v1/projects", s.handleCreateProject)
	app.Get("/v1/projects", s.handleListProjects)
	app.Get("/v1/projects/:id", s.handleGetProject)
	app.Delete("/v1/projects/:id", s.handleDeleteProject)

	app.Post("/v1/projects/:id/nodes", s.handleCreateNode)
	app.Get("/v1/projects/:id/nodes", s.handleListNodes)
	app.Get("/v1/projects/:id/graph", s.handleGraph)

	app.Get("/v1/nodes/:id", s.handleGetNode)
	app.Patch("/v1/nodes/:id", s.handleUpdateNode)
	app.Delete("/v1/nodes/:id", s.handleDeleteNode)

	app.Post("/v1/conversations", s.handleCreateConversation)
	app.Get("/v1/conversations", s.handleListConversations)
	app.Get("/v1/conversations/:id", s.handleGetConversation)
	app.Get("/v1/conversations/:id/messages", s.handleListMessages)

	app.Get("/v1/search", s.handleSearchEndpoint)

	app.Post("/v1/chat/stream", s.handleChatStream)
	app.Post("/v1/research/stream", s.handleResearchStream)

	// Mount the MCP endpoint. Noop when the search stack is not
	// configured so the server still answers MCP handshakes.
	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Storage:      storer,
		VectorDriver: config.VectorDriver,
		Embedder:     config.Embedder,
		Noop:         config.DisableMCP || config.VectorDriver == nil || config.Embedder == nil,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
