package stream

import (
	"fmt"
	"net/http"
)

// TransportError wraps a network-level failure: the request never produced
// a response, or reading the response body failed mid-stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError indicates the server answered the stream request with a
// non-success HTTP status. The response body is not read in this case.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unexpected status"
	}
	return fmt.Sprintf("stream request failed: %d %s", e.Code, text)
}

// EventError carries the detail text of an error event received on the
// stream itself.
type EventError struct {
	Detail string
}

func (e *EventError) Error() string {
	if e.Detail == "" {
		return "stream reported an error"
	}
	return e.Detail
}
