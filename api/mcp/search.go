package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/lorebookhq/lorebook/api/search"
)

var (
	searchToolName    = "search_library"
	searchDescription = "Search the knowledge base using semantic search. Returns the most relevant notes, drafts, and artifacts for the query text, including a content preview for each."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"the search query text to find relevant notes"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"restrict results to one project"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP search request",
		"query", input.Query,
		"topK", input.TopK,
		"project_id", input.ProjectID,
	)

	output, err := apisearch.Search(
		ctx,
		input.Query,
		input.TopK,
		input.ProjectID,
		s.config.Embedder,
		s.config.VectorDriver,
		s.config.Storage,
		logger,
	)
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Search failed: %v", err)},
			},
		}, apisearch.SearchOutput{}, nil
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, apisearch.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
