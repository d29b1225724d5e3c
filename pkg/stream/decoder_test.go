package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/stream"
)

var _ = Describe("Decoder", func() {
	var dec *stream.Decoder

	BeforeEach(func() {
		dec = &stream.Decoder{}
	})

	It("returns nothing until a delimiter arrives", func() {
		frames := dec.Feed([]byte("data: partial"))
		Expect(frames).To(BeEmpty())
		Expect(dec.Buffered()).To(Equal(len("data: partial")))
	})

	It("completes a frame split across feeds", func() {
		Expect(dec.Feed([]byte("data: hel"))).To(BeEmpty())
		frames := dec.Feed([]byte("lo\n\n"))
		Expect(frames).To(HaveLen(1))
		Expect(string(frames[0])).To(Equal("data: hello"))
		Expect(dec.Buffered()).To(BeZero())
	})

	It("returns multiple frames from one chunk", func() {
		frames := dec.Feed([]byte("data: one\n\ndata: two\n\ndata: thr"))
		Expect(frames).To(HaveLen(2))
		Expect(string(frames[0])).To(Equal("data: one"))
		Expect(string(frames[1])).To(Equal("data: two"))
		Expect(dec.Buffered()).To(Equal(len("data: thr")))
	})

	It("keeps a multi-byte rune split across chunks intact", func() {
		payload := []byte("data: café\n\n")
		// Split inside the two-byte 'é' sequence.
		cut := len(payload) - 4
		Expect(dec.Feed(payload[:cut])).To(BeEmpty())

		frames := dec.Feed(payload[cut:])
		Expect(frames).To(HaveLen(1))
		Expect(string(frames[0])).To(Equal("data: café"))
	})

	It("returns frames that outlive later feeds", func() {
		frames := dec.Feed([]byte("data: first\n\n"))
		dec.Feed([]byte("data: second\n\n"))
		Expect(string(frames[0])).To(Equal("data: first"))
	})

	It("treats an empty frame as a frame", func() {
		frames := dec.Feed([]byte("\n\n"))
		Expect(frames).To(HaveLen(1))
		Expect(frames[0]).To(BeEmpty())
	})
})

var _ = Describe("Data", func() {
	It("extracts the data line payload", func() {
		data, ok := stream.Data([]byte("data: {\"event\":\"token\"}"))
		Expect(ok).To(BeTrue())
		Expect(string(data)).To(Equal(`{"event":"token"}`))
	})

	It("skips non-data lines before the payload", func() {
		data, ok := stream.Data([]byte("event: message\nid: 7\ndata: payload"))
		Expect(ok).To(BeTrue())
		Expect(string(data)).To(Equal("payload"))
	})

	It("trims surrounding whitespace", func() {
		data, ok := stream.Data([]byte("data:   spaced  "))
		Expect(ok).To(BeTrue())
		Expect(string(data)).To(Equal("spaced"))
	})

	It("reports frames without a data line", func() {
		_, ok := stream.Data([]byte(": keep-alive comment"))
		Expect(ok).To(BeFalse())
	})
})
