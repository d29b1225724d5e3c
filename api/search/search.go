// Package search provides shared search types and logic for semantic search
// over the knowledge base. It is used by both the REST API endpoint and
// the MCP server tool.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorebookhq/lorebook/pkg/embeddings"
	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/vector"
)

// DefaultTopK is the result count used when the caller does not specify one.
const DefaultTopK = 5

// previewRunes caps how much node content a search result carries.
const previewRunes = 240

// SearchResult represents a single search result.
type SearchResult struct {
	NodeID  string   `json:"node_id"`
	Title   string   `json:"title"`
	Score   float32  `json:"score"`
	Kind    string   `json:"kind"`
	Tags    []string `json:"tags,omitempty"`
	Preview string   `json:"preview"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search performs a semantic search over the knowledge base. It embeds the
// query text, queries the vector store for similar documents, then loads the
// matching node from storage for each result. A non-empty projectID restricts
// results to that project.
func Search(
	ctx context.Context,
	query string,
	topK int,
	projectID string,
	embedder embeddings.Embedder,
	vectorDriver vector.Driver,
	storer storage.Driver,
	logger *slog.Logger,
) (*SearchOutput, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Debug("search request",
		"query", query,
		"topK", topK,
		"project_id", projectID,
	)

	// Embed the query
	queryEmbedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Overfetch when filtering by project so the filter does not starve
	// the result set.
	fetch := topK
	if projectID != "" {
		fetch = topK * 2
	}

	results, err := vectorDriver.Query(ctx, queryEmbedding, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	searchResults := make([]SearchResult, 0, topK)
	for _, result := range results {
		if projectID != "" && result.ProjectID != projectID {
			continue
		}

		node, err := storer.GetNode(ctx, result.ID)
		if err != nil {
			logger.Warn("failed to load node for result",
				"node_id", result.ID,
				"error", err,
			)
			continue
		}

		searchResults = append(searchResults, BuildSearchResult(result, node))
		if len(searchResults) == topK {
			break
		}
	}

	return &SearchOutput{
		Query:   query,
		Results: searchResults,
		Count:   len(searchResults),
	}, nil
}

// BuildSearchResult converts a vector query result and its node into a SearchResult.
func BuildSearchResult(result vector.QueryResult, node *kb.Node) SearchResult {
	return SearchResult{
		NodeID:  node.ID,
		Title:   node.Title,
		Score:   result.Score,
		Kind:    string(node.Kind),
		Tags:    node.Tags,
		Preview: node.Preview(previewRunes),
	}
}
