package static_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/llm"
	"github.com/lorebookhq/lorebook/pkg/llm/provider/static"
)

var _ = Describe("Provider", func() {
	It("streams the reply word by word with a terminal chunk", func() {
		p := static.New("three word reply")

		chunks, err := p.Stream(context.Background(), llm.ChatRequest{})
		Expect(err).NotTo(HaveOccurred())

		var content strings.Builder
		var sawDone bool
		var count int
		for chunk := range chunks {
			count++
			content.WriteString(chunk.Content)
			if chunk.Done {
				sawDone = true
			}
		}

		Expect(content.String()).To(Equal("three word reply"))
		Expect(sawDone).To(BeTrue())
		Expect(count).To(Equal(4))
	})

	It("falls back to the default reply", func() {
		p := static.New("")

		chunks, err := p.Stream(context.Background(), llm.ChatRequest{})
		Expect(err).NotTo(HaveOccurred())

		var content strings.Builder
		for chunk := range chunks {
			content.WriteString(chunk.Content)
		}
		Expect(content.String()).To(Equal(static.DefaultReply))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := static.New("a b c")
		chunks, err := p.Stream(ctx, llm.ChatRequest{})
		Expect(err).NotTo(HaveOccurred())

		Eventually(chunks).Should(BeClosed())
	})
})
