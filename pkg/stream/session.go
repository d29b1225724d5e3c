// Package stream implements the client side of lorebook's event-stream
// protocol: a cancellable POST request whose response body is a sequence of
// blank-line-delimited frames, each carrying one JSON event on a "data:"
// line. Both the chat and research features ride on this package, each with
// its own event vocabulary.
//
// A session dispatches events strictly in arrival order, fires at most one
// terminal callback, and delivers nothing at all once Cancel has been
// called, including events already buffered or in flight at that moment.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
)

// Terminal event tags shared by every vocabulary.
const (
	TagDone  = "done"
	TagError = "error"
)

// Request describes one streaming request. The method is always POST: the
// request carries a JSON body, which the GET-only native SSE primitives
// cannot express.
type Request struct {
	// URL is the absolute endpoint URL.
	URL string

	// Body is JSON-encoded into the request body.
	Body any

	// Header holds optional extra headers. Content-Type and Accept are
	// always set by the session and cannot be overridden.
	Header http.Header
}

// Config parameterizes a session over an event vocabulary.
type Config[E any] struct {
	// Client issues the HTTP request. Defaults to a client with no
	// timeout; long-lived streams must not be cut off by the transport.
	Client *http.Client

	// Decode parses one frame payload into an event and returns the
	// event's discriminant tag. A decode error drops the frame without
	// affecting the session.
	Decode func(data []byte) (E, string, error)

	// Detail extracts the human-readable message from an error-tagged
	// event. Optional; a generic message is used when nil or empty.
	Detail func(E) string

	// ForwardTerminal controls whether done/error events are passed to
	// the event callback before the matching terminal callback fires.
	// The research feature forwards them; chat does not.
	ForwardTerminal bool
}

// Callbacks receive the session's output. Any callback may be nil.
//
// Event fires for every non-terminal event in arrival order (and, with
// ForwardTerminal, for terminal events too). Done and Error are mutually
// exclusive and fire at most once per session.
type Callbacks[E any] struct {
	Event func(E)
	Done  func(E)
	Error func(error)
}

// CancelFunc requests cancellation of a session. It is idempotent and safe
// to call before, during, or after the stream completes. After the first
// call no further callbacks are delivered.
type CancelFunc func()

// defaultClient carries no timeout: streams stay open until a terminal
// event, a transport failure, or cancellation.
var defaultClient = &http.Client{}

// Start opens a streaming session and returns its cancel function
// synchronously, before any network activity completes. The session runs
// in its own goroutine; callbacks are invoked sequentially from that
// goroutine, never concurrently.
func Start[E any](cfg Config[E], req Request, cb Callbacks[E]) CancelFunc {
	ctx, cancelCtx := context.WithCancel(context.Background())

	s := &session[E]{
		cfg: cfg,
		cb:  cb,
	}

	go s.run(ctx, req)

	return func() {
		// Order matters: the flag must be observable before the context
		// cancellation can surface as a read error.
		s.cancelled.Store(true)
		cancelCtx()
	}
}

// session owns one in-flight stream: its decoder buffer and its open
// response body. Nothing is shared between sessions.
type session[E any] struct {
	cfg       Config[E]
	cb        Callbacks[E]
	cancelled atomic.Bool
}

func (s *session[E]) run(ctx context.Context, req Request) {
	client := s.cfg.Client
	if client == nil {
		client = defaultClient
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		s.fail(&TransportError{Err: err})
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		s.fail(&TransportError{Err: err})
		return
	}

	for key, values := range req.Header {
		httpReq.Header[key] = values
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		// A user-initiated cancel races the request as a context error;
		// that is the expected shape of cancellation, not a failure.
		s.fail(&TransportError{Err: err})
		return
	}
	defer resp.Body.Close()

	if s.cancelled.Load() {
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.fail(&StatusError{Code: resp.StatusCode})
		return
	}

	s.consume(resp.Body)
}

// consume reads the body chunk by chunk, re-checking cancellation after
// every read before dispatching anything decoded from it.
func (s *session[E]) consume(body io.Reader) {
	var dec Decoder
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)

		// The read is the suspension point: cancellation requested while
		// it was blocked suppresses this chunk and everything buffered.
		if s.cancelled.Load() {
			return
		}

		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				if s.dispatch(frame) {
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.fail(&TransportError{Err: err})
			}
			// EOF without a terminal frame ends the session silently;
			// any partial frame left in the decoder is discarded.
			return
		}
	}
}

// dispatch decodes and delivers one frame. It reports whether the frame
// was terminal and the session must stop, leaving any remaining buffered
// frames undelivered.
func (s *session[E]) dispatch(frame []byte) (terminal bool) {
	data, ok := Data(frame)
	if !ok {
		// Frames without a data line (comments, keep-alives) are skipped.
		return false
	}

	event, tag, err := s.cfg.Decode(data)
	if err != nil {
		// Malformed payloads drop the frame, never the session.
		return false
	}

	switch tag {
	case TagDone:
		if s.cfg.ForwardTerminal && s.cb.Event != nil {
			s.cb.Event(event)
		}
		if s.cb.Done != nil {
			s.cb.Done(event)
		}
		return true

	case TagError:
		if s.cfg.ForwardTerminal && s.cb.Event != nil {
			s.cb.Event(event)
		}
		detail := ""
		if s.cfg.Detail != nil {
			detail = s.cfg.Detail(event)
		}
		if s.cb.Error != nil {
			s.cb.Error(&EventError{Detail: detail})
		}
		return true

	default:
		if s.cb.Event != nil {
			s.cb.Event(event)
		}
		return false
	}
}

// fail delivers a session-level error unless cancellation suppressed it.
func (s *session[E]) fail(err error) {
	if s.cancelled.Load() {
		return
	}
	if s.cb.Error != nil {
		s.cb.Error(err)
	}
}
