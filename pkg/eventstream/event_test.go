package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/eventstream"
	"github.com/lorebookhq/lorebook/pkg/kb"
)

var _ = Describe("Event", func() {
	It("marshals NodePersistedEvent with expected top-level keys", func() {
		node := kb.NewNode("proj-1", "caching", "LRU notes", kb.KindNote)
		event := eventstream.NewNodePersisted(node, "api")

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("schema_version"))
		Expect(decoded).To(HaveKey("event_type"))
		Expect(decoded).To(HaveKey("event_id"))
		Expect(decoded).To(HaveKey("emitted_at"))
		Expect(decoded).To(HaveKey("source"))
		Expect(decoded).To(HaveKey("node"))
	})

	It("stamps schema and type", func() {
		node := kb.NewNode("proj-1", "caching", "", kb.KindNote)
		event := eventstream.NewNodePersisted(node, "drafts")

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeNodePersisted))
		Expect(event.EventID).To(HavePrefix("evt_"))
		Expect(event.Source.ProjectID).To(Equal("proj-1"))
		Expect(event.Source.Origin).To(Equal("drafts"))
	})
})
