package provider

import (
	"context"

	"github.com/lorebookhq/lorebook/pkg/llm"
)

// Provider defines the interface for streaming chat completion backends.
type Provider interface {
	// Name returns the canonical provider name (e.g., "ollama", "static")
	Name() string

	// Stream starts a completion and returns a channel of chunks.
	// The channel is closed after the final chunk. Cancelling the context
	// stops the stream and closes the channel.
	Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error)

	// Close releases any resources held by the provider.
	Close() error
}
