package client

import (
	"encoding/json"

	"github.com/lorebookhq/lorebook/pkg/stream"
)

// Chat event tags. Terminal tags are stream.TagDone and stream.TagError.
const (
	ChatEventToken    = "token"
	ChatEventCitation = "citation"
)

// ChatRequest is the body of a chat stream request.
type ChatRequest struct {
	ProjectID      string `json:"project_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatEvent is one decoded chat stream event.
type ChatEvent struct {
	Event  string         `json:"event"`
	Text   string         `json:"text,omitempty"`
	Nodes  []CitationNode `json:"nodes,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

// CitationNode references a library node used to ground a chat answer.
type CitationNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

func decodeChatEvent(data []byte) (ChatEvent, string, error) {
	var ev ChatEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChatEvent{}, "", err
	}
	return ev, ev.Event, nil
}

// StreamChat opens a chat stream. onEvent receives token and citation
// events in arrival order; terminal events go to onDone/onError only.
// The returned cancel function is idempotent; once called, no further
// callbacks fire.
func (c *Client) StreamChat(req ChatRequest, onEvent func(ChatEvent), onDone func(), onError func(error)) stream.CancelFunc {
	cfg := stream.Config[ChatEvent]{
		Client: c.streamClient,
		Decode: decodeChatEvent,
		Detail: func(ev ChatEvent) string { return ev.Detail },
	}

	return stream.Start(cfg, stream.Request{
		URL:  c.baseURL + "/v1/chat/stream",
		Body: req,
	}, stream.Callbacks[ChatEvent]{
		Event: onEvent,
		Done: func(ChatEvent) {
			if onDone != nil {
				onDone()
			}
		},
		Error: onError,
	})
}
