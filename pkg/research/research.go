// Package research implements the multi-step research agent. It seeds from
// the most relevant nodes, walks the link graph, synthesizes a markdown
// report, and persists the report as an artifact node.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorebookhq/lorebook/pkg/embeddings"
	"github.com/lorebookhq/lorebook/pkg/graph"
	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/llm"
	"github.com/lorebookhq/lorebook/pkg/llm/provider"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/vector"
)

const (
	// DefaultDepth is how many link hops the walk takes from each seed.
	DefaultDepth = 2

	// maxSeeds caps how many entry points the walk starts from.
	maxSeeds = 5

	synthesisSystemPrompt = "You are a research assistant working over a personal " +
		"knowledge base. Synthesize the provided notes into a short briefing that " +
		"answers the research goal. Cite note titles inline."
)

// Progress reports one step of a running research session.
type Progress struct {
	// Status is a human-readable stage description.
	Status string

	// Node is set when the step corresponds to visiting a knowledge node.
	Node *graph.Node
}

// Request describes a research run.
type Request struct {
	ProjectID string
	Goal      string
	Depth     int
}

// Result is the outcome of a completed research run.
type Result struct {
	// Report is the synthesized markdown briefing.
	Report string

	// ArtifactID is the ID of the persisted artifact node.
	ArtifactID string

	// Visited lists the IDs of the nodes the walk covered, in visit order.
	Visited []string
}

// Agent wires the research loop to its backends. Embedder and Vector are
// optional: without them seeding falls back to recency. Provider is optional:
// without it the report is assembled from note previews only.
type Agent struct {
	Storage  storage.Driver
	Embedder embeddings.Embedder
	Vector   vector.Driver
	Provider provider.Provider
	Logger   *slog.Logger
}

// Run executes a research session. onProgress is invoked synchronously for
// each step; pass nil to skip progress reporting.
func (a *Agent) Run(ctx context.Context, req Request, onProgress func(Progress)) (*Result, error) {
	if req.Goal == "" {
		return nil, fmt.Errorf("research goal is required")
	}

	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	emit := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	emit(Progress{Status: "loading project nodes"})
	nodes, err := a.Storage.ListNodes(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("project %s has no nodes to research", req.ProjectID)
	}

	g := graph.Build(nodes)
	byID := make(map[string]*kb.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	emit(Progress{Status: "selecting entry points"})
	seeds := a.seeds(ctx, req, nodes)

	// Walk the link graph out from each seed, visiting each node once.
	var visited []string
	seen := make(map[string]bool)
	for _, seed := range seeds {
		for _, id := range g.Neighborhood(seed, depth) {
			if seen[id] {
				continue
			}
			seen[id] = true
			visited = append(visited, id)

			if gn, ok := g.Lookup(id); ok {
				emit(Progress{Status: "reading " + gn.Title, Node: &gn})
			}
		}
	}

	emit(Progress{Status: "synthesizing report"})
	report, err := a.compose(ctx, req.Goal, visited, byID)
	if err != nil {
		return nil, err
	}

	artifact := kb.NewNode(req.ProjectID, "Research: "+req.Goal, report, kb.KindArtifact)
	artifact.Tags = []string{"research"}
	for _, id := range visited {
		artifact.LinkTo(id)
	}
	if err := a.Storage.PutNode(ctx, artifact); err != nil {
		return nil, fmt.Errorf("persisting artifact: %w", err)
	}

	a.Logger.Info("research run complete",
		"project_id", req.ProjectID,
		"visited", len(visited),
		"artifact_id", artifact.ID,
	)

	return &Result{
		Report:     report,
		ArtifactID: artifact.ID,
		Visited:    visited,
	}, nil
}

// seeds picks the walk's entry points: vector search over the goal when a
// search stack is configured, most recently updated nodes otherwise.
func (a *Agent) seeds(ctx context.Context, req Request, nodes []*kb.Node) []string {
	if a.Embedder != nil && a.Vector != nil {
		embedding, err := a.Embedder.Embed(ctx, req.Goal)
		if err == nil {
			results, err := a.Vector.Query(ctx, embedding, maxSeeds*2)
			if err == nil {
				var seeds []string
				for _, r := range results {
					if r.ProjectID != "" && r.ProjectID != req.ProjectID {
						continue
					}
					seeds = append(seeds, r.ID)
					if len(seeds) == maxSeeds {
						break
					}
				}
				if len(seeds) > 0 {
					return seeds
				}
			}
		}
		a.Logger.Warn("vector seeding failed, falling back to recency", "error", err)
	}

	// ListNodes returns newest first.
	var seeds []string
	for _, n := range nodes {
		seeds = append(seeds, n.ID)
		if len(seeds) == maxSeeds {
			break
		}
	}
	return seeds
}

// compose builds the markdown report, delegating the summary to the chat
// provider when one is configured.
func (a *Agent) compose(ctx context.Context, goal string, visited []string, byID map[string]*kb.Node) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research: %s\n\n", goal)
	fmt.Fprintf(&b, "_Generated %s over %d notes._\n\n", time.Now().UTC().Format(time.RFC3339), len(visited))

	if a.Provider != nil {
		summary, err := a.summarize(ctx, goal, visited, byID)
		if err != nil {
			return "", err
		}
		b.WriteString("## Summary\n\n")
		b.WriteString(strings.TrimSpace(summary))
		b.WriteString("\n\n")
	}

	b.WriteString("## Sources\n\n")
	for _, id := range visited {
		n, ok := byID[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", n.Title)
		if preview := n.Preview(280); preview != "" {
			b.WriteString(preview)
			b.WriteString("\n\n")
		}
	}

	return b.String(), nil
}

func (a *Agent) summarize(ctx context.Context, goal string, visited []string, byID map[string]*kb.Node) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Research goal: %s\n\nNotes:\n\n", goal)
	for _, id := range visited {
		if n, ok := byID[id]; ok {
			fmt.Fprintf(&prompt, "## %s\n%s\n\n", n.Title, n.Content)
		}
	}

	chunks, err := a.Provider.Stream(ctx, llm.ChatRequest{
		System:   synthesisSystemPrompt,
		Messages: []llm.Message{llm.NewTextMessage("user", prompt.String())},
	})
	if err != nil {
		return "", fmt.Errorf("starting synthesis: %w", err)
	}

	var summary strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", fmt.Errorf("synthesis stream: %w", chunk.Err)
		}
		summary.WriteString(chunk.Content)
	}

	return summary.String(), nil
}
