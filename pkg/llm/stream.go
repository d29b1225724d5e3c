package llm

// StreamChunk represents a single chunk in a streaming completion.
type StreamChunk struct {
	// The partial assistant content carried by this chunk
	Content string `json:"content"`

	// Whether this is the final chunk
	Done bool `json:"done"`

	// Err carries a mid-stream failure. When set the channel is closed
	// after this chunk and no Done chunk follows.
	Err error `json:"-"`
}
