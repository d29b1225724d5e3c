package sse_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/sse"
)

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

var _ = Describe("Writer", func() {
	It("writes a JSON payload as a data frame with a blank-line delimiter", func() {
		var buf bytes.Buffer
		w := sse.NewWriter(&buf)

		Expect(w.Send(map[string]string{"event": "token", "text": "hi"})).To(Succeed())

		Expect(buf.String()).To(HavePrefix("data: "))
		Expect(buf.String()).To(HaveSuffix("\n\n"))
		Expect(buf.String()).To(ContainSubstring(`"event":"token"`))
	})

	It("writes raw payloads verbatim", func() {
		var buf bytes.Buffer
		w := sse.NewWriter(&buf)

		Expect(w.SendRaw([]byte(`{"event":"done"}`))).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"event\":\"done\"}\n\n"))
	})

	It("flushes after each event when the writer supports it", func() {
		rec := &flushRecorder{}
		w := sse.NewWriter(rec)

		Expect(w.Send(map[string]string{"event": "token"})).To(Succeed())
		Expect(w.Send(map[string]string{"event": "done"})).To(Succeed())
		Expect(rec.flushes).To(Equal(2))
	})

	It("rejects unencodable payloads", func() {
		w := sse.NewWriter(&bytes.Buffer{})
		Expect(w.Send(make(chan int))).NotTo(Succeed())
	})
})
