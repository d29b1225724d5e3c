package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/kb"
)

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("project wrappers", func() {
		It("creates a project via POST /v1/projects", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/projects"))

				var body map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body["name"]).To(Equal("atlas"))

				project := kb.NewProject(body["name"], body["description"])
				_ = json.NewEncoder(w).Encode(project)
			}))
			defer srv.Close()

			c := client.New(srv.URL)
			project, err := c.CreateProject(ctx, "atlas", "maps")
			Expect(err).NotTo(HaveOccurred())
			Expect(project.Name).To(Equal("atlas"))
			Expect(project.ID).NotTo(BeEmpty())
		})

		It("surfaces API errors with the server message", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "project not found"})
			}))
			defer srv.Close()

			c := client.New(srv.URL)
			_, err := c.GetProject(ctx, "missing")

			var apiErr *client.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.(*client.APIError).Status).To(Equal(http.StatusNotFound))
			Expect(err.Error()).To(ContainSubstring("project not found"))
		})
	})

	Describe("node wrappers", func() {
		It("updates a node via PATCH /v1/nodes/:id", func() {
			node := kb.NewNode("p1", "Cache design", "old", kb.KindNote)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPatch))
				Expect(r.URL.Path).To(Equal("/v1/nodes/" + node.ID))

				var body kb.Node
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body.Content).To(Equal("new"))
				_ = json.NewEncoder(w).Encode(&body)
			}))
			defer srv.Close()

			node.Content = "new"
			updated, err := client.New(srv.URL).UpdateNode(ctx, node)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Content).To(Equal("new"))
		})
	})

	Describe("graph wrapper", func() {
		It("fetches graph data for a project", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/projects/p1/graph"))
				_ = json.NewEncoder(w).Encode(client.GraphOutput{
					Edges: []client.GraphEdge{{From: "a", To: "b"}},
				})
			}))
			defer srv.Close()

			graph, err := client.New(srv.URL).Graph(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(graph.Edges).To(HaveLen(1))
		})
	})

	Describe("conversation wrappers", func() {
		It("gets a conversation by ID", func() {
			conv := kb.NewConversation("p1", "dragon lore")

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/conversations/" + conv.ID))
				_ = json.NewEncoder(w).Encode(conv)
			}))
			defer srv.Close()

			got, err := client.New(srv.URL).GetConversation(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("dragon lore"))
		})

		It("lists conversations scoped to a project", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/conversations"))
				Expect(r.URL.Query().Get("project_id")).To(Equal("p1"))
				_ = json.NewEncoder(w).Encode([]*kb.Conversation{kb.NewConversation("p1", "t")})
			}))
			defer srv.Close()

			convs, err := client.New(srv.URL).ListConversations(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs).To(HaveLen(1))
		})
	})

	Describe("search wrapper", func() {
		It("encodes query parameters", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/search"))
				Expect(r.URL.Query().Get("query")).To(Equal("caching strategy"))
				Expect(r.URL.Query().Get("top_k")).To(Equal("3"))

				_ = json.NewEncoder(w).Encode(client.SearchOutput{
					Query: "caching strategy",
					Results: []client.SearchResult{
						{NodeID: "n1", Title: "Cache design", Score: 0.92},
					},
					Count: 1,
				})
			}))
			defer srv.Close()

			c := client.New(srv.URL)
			output, err := c.Search(ctx, "caching strategy", 3, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].Title).To(Equal("Cache design"))
		})
	})

	Describe("StreamChat", func() {
		It("delivers tokens and citations, then done", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/chat/stream"))
				Expect(r.Header.Get("Accept")).To(Equal("text/event-stream"))

				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w,
					"data: {\"event\":\"citation\",\"nodes\":[{\"id\":\"n1\",\"title\":\"Cache design\"}]}\n\n"+
						"data: {\"event\":\"token\",\"text\":\"Use \"}\n\n"+
						"data: {\"event\":\"token\",\"text\":\"an LRU.\"}\n\n"+
						"data: {\"event\":\"done\"}\n\n")
			}))
			defer srv.Close()

			var (
				mu     sync.Mutex
				events []client.ChatEvent
				dones  int
				errs   []error
			)

			c := client.New(srv.URL)
			c.StreamChat(client.ChatRequest{ProjectID: "p", Message: "how should I cache?"},
				func(ev client.ChatEvent) {
					mu.Lock()
					defer mu.Unlock()
					events = append(events, ev)
				},
				func() {
					mu.Lock()
					defer mu.Unlock()
					dones++
				},
				func(err error) {
					mu.Lock()
					defer mu.Unlock()
					errs = append(errs, err)
				},
			)

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return dones
			}).Should(Equal(1))

			mu.Lock()
			defer mu.Unlock()
			Expect(errs).To(BeEmpty())
			Expect(events).To(HaveLen(3))
			Expect(events[0].Event).To(Equal(client.ChatEventCitation))
			Expect(events[0].Nodes[0].ID).To(Equal("n1"))
			Expect(events[1].Text).To(Equal("Use "))
			Expect(events[2].Text).To(Equal("an LRU."))
		})
	})

	Describe("StreamResearch", func() {
		It("forwards the terminal event and preserves unknown fields", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/research/stream"))

				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w,
					"data: {\"event\":\"node\",\"node\":\"Cache design\",\"status\":\"visiting\",\"elapsed_ms\":12}\n\n"+
						"data: {\"event\":\"done\",\"report\":\"# Findings\",\"artifact_id\":\"a1\"}\n\n")
			}))
			defer srv.Close()

			var (
				mu         sync.Mutex
				events     []client.ResearchEvent
				report     string
				artifactID string
				doneCalls  int
			)

			c := client.New(srv.URL)
			c.StreamResearch(client.ResearchRequest{ProjectID: "p", Goal: "summarize caching"},
				func(ev client.ResearchEvent) {
					mu.Lock()
					defer mu.Unlock()
					events = append(events, ev)
				},
				func(r, a string) {
					mu.Lock()
					defer mu.Unlock()
					report, artifactID = r, a
					doneCalls++
				},
				nil,
			)

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return doneCalls
			}).Should(Equal(1))

			mu.Lock()
			defer mu.Unlock()
			// The research vocabulary forwards the terminal event to the
			// event callback before completing.
			Expect(events).To(HaveLen(2))
			Expect(events[0].Node).To(Equal("Cache design"))
			Expect(events[0].Status).To(Equal("visiting"))
			Expect(events[0].Extra).To(HaveKeyWithValue("elapsed_ms", BeNumerically("==", 12)))
			Expect(events[1].Event).To(Equal("done"))
			Expect(report).To(Equal("# Findings"))
			Expect(artifactID).To(Equal("a1"))
		})
	})
})
