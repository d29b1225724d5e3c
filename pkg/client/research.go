package client

import (
	"encoding/json"

	"github.com/lorebookhq/lorebook/pkg/stream"
)

// ResearchEventNode is the progress tag of the research vocabulary.
const ResearchEventNode = "node"

// ResearchRequest is the body of a research stream request.
type ResearchRequest struct {
	ProjectID string `json:"project_id"`
	Goal      string `json:"goal"`
	Depth     int    `json:"depth,omitempty"`
}

// ResearchEvent is one decoded research stream event. Node progress events
// may carry fields beyond the declared ones; those are preserved in Extra
// rather than rejected, so newer servers keep working with older clients.
type ResearchEvent struct {
	Event      string
	Node       string
	Status     string
	Report     string
	ArtifactID string
	Detail     string
	Extra      map[string]any
}

// UnmarshalJSON decodes the known fields and routes everything else into
// Extra.
func (e *ResearchEvent) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	known := map[string]*string{
		"event":       &e.Event,
		"node":        &e.Node,
		"status":      &e.Status,
		"report":      &e.Report,
		"artifact_id": &e.ArtifactID,
		"detail":      &e.Detail,
	}

	for key, raw := range fields {
		if dst, ok := known[key]; ok {
			// Known fields must be strings; a mismatch drops the frame.
			if err := json.Unmarshal(raw, dst); err != nil {
				return err
			}
			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[key] = value
	}

	return nil
}

func decodeResearchEvent(data []byte) (ResearchEvent, string, error) {
	var ev ResearchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ResearchEvent{}, "", err
	}
	return ev, ev.Event, nil
}

// StreamResearch opens a research stream. Unlike chat, the terminal event
// is also forwarded to onEvent before the terminal callback fires; the two
// features have always differed here and callers rely on it.
func (c *Client) StreamResearch(req ResearchRequest, onEvent func(ResearchEvent), onDone func(report, artifactID string), onError func(error)) stream.CancelFunc {
	cfg := stream.Config[ResearchEvent]{
		Client:          c.streamClient,
		Decode:          decodeResearchEvent,
		Detail:          func(ev ResearchEvent) string { return ev.Detail },
		ForwardTerminal: true,
	}

	return stream.Start(cfg, stream.Request{
		URL:  c.baseURL + "/v1/research/stream",
		Body: req,
	}, stream.Callbacks[ResearchEvent]{
		Event: onEvent,
		Done: func(ev ResearchEvent) {
			if onDone != nil {
				onDone(ev.Report, ev.ArtifactID)
			}
		},
		Error: onError,
	})
}
