// Package static implements an offline chat provider that streams a canned
// completion. It keeps chat and research usable without a model server and
// backs the test suites.
package static

import (
	"context"
	"strings"

	"github.com/lorebookhq/lorebook/pkg/llm"
)

// DefaultReply is streamed when no reply template is configured.
const DefaultReply = "I don't have a model configured, so this is a canned reply. " +
	"Point llm.provider at a real backend to get grounded answers."

// Provider streams a fixed reply, one word per chunk.
type Provider struct {
	reply string
}

// New creates a static provider. An empty reply falls back to DefaultReply.
func New(reply string) *Provider {
	if reply == "" {
		reply = DefaultReply
	}
	return &Provider{reply: reply}
}

func (p *Provider) Name() string {
	return "static"
}

// Stream emits the canned reply word by word followed by a terminal chunk.
func (p *Provider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	chunks := make(chan llm.StreamChunk)

	go func() {
		defer close(chunks)

		words := strings.Fields(p.reply)
		for i, word := range words {
			text := word
			if i < len(words)-1 {
				text += " "
			}
			select {
			case chunks <- llm.StreamChunk{Content: text}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case chunks <- llm.StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

func (p *Provider) Close() error {
	return nil
}
