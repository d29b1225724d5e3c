package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/graph"
	"github.com/lorebookhq/lorebook/pkg/kb"
)

var _ = Describe("Graph", func() {
	newNode := func(id, title string, links ...string) *kb.Node {
		return &kb.Node{
			ID:    id,
			Title: title,
			Kind:  kb.KindNote,
			Links: links,
		}
	}

	It("builds edges only between known nodes", func() {
		g := graph.Build([]*kb.Node{
			newNode("a", "alpha", "b", "missing"),
			newNode("b", "beta"),
		})

		Expect(g.Nodes).To(HaveLen(2))
		Expect(g.Edges).To(Equal([]graph.Edge{{From: "a", To: "b"}}))
	})

	It("sorts nodes by title", func() {
		g := graph.Build([]*kb.Node{
			newNode("1", "zebra"),
			newNode("2", "aardvark"),
		})

		Expect(g.Nodes[0].Title).To(Equal("aardvark"))
		Expect(g.Nodes[1].Title).To(Equal("zebra"))
	})

	Describe("Neighborhood", func() {
		var g *graph.Graph

		BeforeEach(func() {
			// a -> b -> c -> d, plus a -> c shortcut
			g = graph.Build([]*kb.Node{
				newNode("a", "a", "b", "c"),
				newNode("b", "b", "c"),
				newNode("c", "c", "d"),
				newNode("d", "d"),
			})
		})

		It("includes only nodes within the hop limit", func() {
			Expect(g.Neighborhood("a", 1)).To(ConsistOf("a", "b", "c"))
		})

		It("reaches transitively linked nodes at higher depth", func() {
			Expect(g.Neighborhood("a", 2)).To(ConsistOf("a", "b", "c", "d"))
		})

		It("visits each node once despite multiple in-links", func() {
			hood := g.Neighborhood("a", 3)
			seen := map[string]int{}
			for _, id := range hood {
				seen[id]++
			}
			for id, count := range seen {
				Expect(count).To(Equal(1), "node %s visited more than once", id)
			}
		})

		It("returns nil for unknown start nodes", func() {
			Expect(g.Neighborhood("ghost", 2)).To(BeNil())
		})

		It("returns just the start at depth zero", func() {
			Expect(g.Neighborhood("a", 0)).To(Equal([]string{"a"}))
		})
	})

	Describe("DOT", func() {
		It("renders nodes and edges", func() {
			g := graph.Build([]*kb.Node{
				newNode("a", "alpha", "b"),
				newNode("b", "beta"),
			})

			dot := g.DOT()
			Expect(dot).To(HavePrefix("digraph lorebook {"))
			Expect(dot).To(ContainSubstring(`"a" [label="alpha"];`))
			Expect(dot).To(ContainSubstring(`"a" -> "b";`))
			Expect(dot).To(HaveSuffix("}\n"))
		})
	})
})
