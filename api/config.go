// Package api provides the HTTP API server for the lorebook system:
// project, node, and conversation CRUD, the project graph, semantic
// search, and the streaming chat and research endpoints.
package api

import (
	"github.com/lorebookhq/lorebook/pkg/embeddings"
	"github.com/lorebookhq/lorebook/pkg/eventstream"
	"github.com/lorebookhq/lorebook/pkg/llm/provider"
	"github.com/lorebookhq/lorebook/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// VectorDriver for semantic search. Optional; search endpoints
	// return 503 when unset.
	VectorDriver vector.Driver

	// Embedder for converting text to vectors for semantic search and
	// node indexing with the configured VectorDriver. Optional.
	Embedder embeddings.Embedder

	// Provider generates chat completions and research summaries.
	// Optional; the chat stream returns 503 when unset.
	Provider provider.Provider

	// Publisher receives node-persisted events. Optional.
	Publisher eventstream.Publisher

	// DisableMCP turns off the /mcp endpoint even when the search stack
	// is configured.
	DisableMCP bool
}

// ErrorResponse is the JSON error body returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
