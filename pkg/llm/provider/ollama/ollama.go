// Package ollama implements a streaming chat provider backed by Ollama's
// /api/chat NDJSON endpoint.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lorebookhq/lorebook/pkg/llm"
)

const (
	// DefaultModel is used when the request does not name a model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Provider streams chat completions from a local or remote Ollama server.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds configuration for the Ollama chat provider.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the default chat model. Defaults to DefaultModel if empty.
	Model string
}

// New creates an Ollama chat provider.
func New(cfg Config, logger *slog.Logger) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		baseURL: baseURL,
		model:   model,
		// No client timeout: completions can stream for minutes and are
		// bounded by the request context instead.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (p *Provider) Name() string {
	return "ollama"
}

// Stream starts a completion and returns a channel of chunks.
func (p *Provider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := req.Messages
	if req.System != "" {
		messages = append([]llm.Message{llm.NewTextMessage("system", req.System)}, messages...)
	}

	body := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		body.Options = &chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	chunks := make(chan llm.StreamChunk)
	go p.consume(ctx, resp.Body, chunks)

	return chunks, nil
}

// consume reads NDJSON lines off the response body and forwards them as
// chunks until the terminal line, an error, or context cancellation.
func (p *Provider) consume(ctx context.Context, body io.ReadCloser, chunks chan<- llm.StreamChunk) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			p.send(ctx, chunks, llm.StreamChunk{Err: fmt.Errorf("decoding chunk: %w", err)})
			return
		}

		if chunk.Error != "" {
			p.send(ctx, chunks, llm.StreamChunk{Err: errors.New(chunk.Error)})
			return
		}

		out := llm.StreamChunk{
			Content: chunk.Message.Content,
			Done:    chunk.Done,
		}
		if !p.send(ctx, chunks, out) {
			return
		}
		if chunk.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		p.send(ctx, chunks, llm.StreamChunk{Err: fmt.Errorf("reading stream: %w", err)})
	}
}

func (p *Provider) send(ctx context.Context, chunks chan<- llm.StreamChunk, chunk llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	return nil
}
