package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/llm"
	"github.com/lorebookhq/lorebook/pkg/llm/provider/ollama"
)

var _ = Describe("Provider", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	ndjsonServer := func(lines ...string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			flusher := w.(http.Flusher)
			for _, line := range lines {
				fmt.Fprintln(w, line)
				flusher.Flush()
			}
		}))
	}

	collect := func(chunks <-chan llm.StreamChunk) []llm.StreamChunk {
		var out []llm.StreamChunk
		for chunk := range chunks {
			out = append(out, chunk)
		}
		return out
	}

	It("streams NDJSON chunks until the terminal line", func() {
		server := ndjsonServer(
			`{"model":"llama3.2","message":{"role":"assistant","content":"Hello"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":" world"},"done":false}`,
			`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`,
		)
		defer server.Close()

		p := ollama.New(ollama.Config{BaseURL: server.URL}, logger)
		chunks, err := p.Stream(context.Background(), llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).NotTo(HaveOccurred())

		got := collect(chunks)
		Expect(got).To(HaveLen(3))
		Expect(got[0].Content).To(Equal("Hello"))
		Expect(got[1].Content).To(Equal(" world"))
		Expect(got[2].Done).To(BeTrue())
	})

	It("prepends the system prompt as a system message", func() {
		var gotReq struct {
			Model    string        `json:"model"`
			Messages []llm.Message `json:"messages"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
		}))
		defer server.Close()

		p := ollama.New(ollama.Config{BaseURL: server.URL, Model: "qwen2.5"}, logger)
		chunks, err := p.Stream(context.Background(), llm.ChatRequest{
			System:   "You are a librarian.",
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).NotTo(HaveOccurred())
		collect(chunks)

		Expect(gotReq.Model).To(Equal("qwen2.5"))
		Expect(gotReq.Messages).To(HaveLen(2))
		Expect(gotReq.Messages[0].Role).To(Equal("system"))
		Expect(gotReq.Messages[0].Content).To(Equal("You are a librarian."))
	})

	It("surfaces in-band error lines as chunk errors", func() {
		server := ndjsonServer(
			`{"message":{"role":"assistant","content":"par"},"done":false}`,
			`{"error":"model requires more system memory"}`,
		)
		defer server.Close()

		p := ollama.New(ollama.Config{BaseURL: server.URL}, logger)
		chunks, err := p.Stream(context.Background(), llm.ChatRequest{})
		Expect(err).NotTo(HaveOccurred())

		got := collect(chunks)
		Expect(got).To(HaveLen(2))
		Expect(got[1].Err).To(MatchError("model requires more system memory"))
	})

	It("returns an error for non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		p := ollama.New(ollama.Config{BaseURL: server.URL}, logger)
		_, err := p.Stream(context.Background(), llm.ChatRequest{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("404"))
	})
})
