// Package client is the Go client for the lorebook API server: thin REST
// wrappers for projects, nodes, and conversations, plus the streaming chat
// and research entry points built on pkg/stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lorebookhq/lorebook/pkg/kb"
)

// Client talks to a lorebook API server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient carries no timeout; it backs the chat and research
	// streams, which stay open for the lifetime of a session.
	streamClient *http.Client
}

// New creates a client for the given API target URL
// (e.g. "http://localhost:7466").
func New(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

// APIError is a non-success response from the API server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Ping checks connectivity to the API server.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, description string) (*kb.Project, error) {
	var project kb.Project
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/v1/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects lists all projects.
func (c *Client) ListProjects(ctx context.Context) ([]*kb.Project, error) {
	var projects []*kb.Project
	if err := c.do(ctx, http.MethodGet, "/v1/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject retrieves a project by ID.
func (c *Client) GetProject(ctx context.Context, id string) (*kb.Project, error) {
	var project kb.Project
	if err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject deletes a project and everything under it.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, nil)
}

// CreateNode creates a node in a project.
func (c *Client) CreateNode(ctx context.Context, node *kb.Node) (*kb.Node, error) {
	var created kb.Node
	path := "/v1/projects/" + url.PathEscape(node.ProjectID) + "/nodes"
	if err := c.do(ctx, http.MethodPost, path, node, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListNodes lists the nodes of a project.
func (c *Client) ListNodes(ctx context.Context, projectID string) ([]*kb.Node, error) {
	var nodes []*kb.Node
	path := "/v1/projects/" + url.PathEscape(projectID) + "/nodes"
	if err := c.do(ctx, http.MethodGet, path, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode retrieves a node by ID.
func (c *Client) GetNode(ctx context.Context, id string) (*kb.Node, error) {
	var node kb.Node
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/"+url.PathEscape(id), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNode replaces a node's mutable fields.
func (c *Client) UpdateNode(ctx context.Context, node *kb.Node) (*kb.Node, error) {
	var updated kb.Node
	if err := c.do(ctx, http.MethodPatch, "/v1/nodes/"+url.PathEscape(node.ID), node, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNode deletes a node by ID.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/nodes/"+url.PathEscape(id), nil, nil)
}

// Graph retrieves the node/edge map of a project.
func (c *Client) Graph(ctx context.Context, projectID string) (*GraphOutput, error) {
	var graph GraphOutput
	path := "/v1/projects/" + url.PathEscape(projectID) + "/graph"
	if err := c.do(ctx, http.MethodGet, path, nil, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// GraphOutput mirrors the API server's graph response.
type GraphOutput struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is one vertex of the project map.
type GraphNode struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Kind  string   `json:"kind"`
	Tags  []string `json:"tags,omitempty"`
}

// GraphEdge is a directed link between two nodes.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CreateConversation creates a conversation in a project.
func (c *Client) CreateConversation(ctx context.Context, projectID, title string) (*kb.Conversation, error) {
	var conv kb.Conversation
	body := map[string]string{"project_id": projectID, "title": title}
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
func (c *Client) GetConversation(ctx context.Context, id string) (*kb.Conversation, error) {
	var conv kb.Conversation
	if err := c.do(ctx, http.MethodGet, "/v1/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations lists the conversations of a project.
func (c *Client) ListConversations(ctx context.Context, projectID string) ([]*kb.Conversation, error) {
	var convs []*kb.Conversation
	path := "/v1/conversations?project_id=" + url.QueryEscape(projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages lists the messages of a conversation, oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*kb.Message, error) {
	var messages []*kb.Message
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Search runs a semantic search over the library.
func (c *Client) Search(ctx context.Context, query string, topK int, projectID string) (*SearchOutput, error) {
	values := url.Values{}
	values.Set("query", query)
	if topK > 0 {
		values.Set("top_k", strconv.Itoa(topK))
	}
	if projectID != "" {
		values.Set("project_id", projectID)
	}

	var output SearchOutput
	if err := c.do(ctx, http.MethodGet, "/v1/search?"+values.Encode(), nil, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// SearchOutput mirrors the API server's search response.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchResult is one scored library hit.
type SearchResult struct {
	NodeID  string   `json:"node_id"`
	Title   string   `json:"title"`
	Score   float32  `json:"score"`
	Kind    string   `json:"kind"`
	Tags    []string `json:"tags,omitempty"`
	Preview string   `json:"preview"`
}

// do issues one JSON request and decodes the response into out (when
// non-nil). Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
