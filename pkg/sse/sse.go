// Package sse provides a minimal SSE (Server-Sent Events) writer for the
// lorebook API's streaming endpoints. Each event is a JSON payload on a
// single "data:" line, with events delimited by a blank line.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer serializes events onto an io.Writer in SSE wire format. It is not
// safe for concurrent use; streaming handlers own their writer goroutine.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w in an SSE writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send marshals payload to JSON and writes it as one SSE event frame.
func (s *Writer) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if f, ok := s.w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}

// SendRaw writes a preserialized payload as one SSE event frame.
func (s *Writer) SendRaw(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if f, ok := s.w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}
