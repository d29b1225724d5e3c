package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	Describe("projects", func() {
		It("round-trips a project", func() {
			project := kb.NewProject("atlas", "maps")
			Expect(driver.CreateProject(ctx, project)).To(Succeed())

			got, err := driver.GetProject(ctx, project.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("atlas"))
		})

		It("returns NotFoundError for unknown projects", func() {
			_, err := driver.GetProject(ctx, "nope")
			Expect(err).To(MatchError(storage.NotFoundError{Kind: "project", ID: "nope"}))
		})

		It("deletes a project with its nodes and conversations", func() {
			project := kb.NewProject("atlas", "")
			Expect(driver.CreateProject(ctx, project)).To(Succeed())

			node := kb.NewNode(project.ID, "note", "", kb.KindNote)
			Expect(driver.PutNode(ctx, node)).To(Succeed())

			conv := kb.NewConversation(project.ID, "thread")
			Expect(driver.CreateConversation(ctx, conv)).To(Succeed())

			Expect(driver.DeleteProject(ctx, project.ID)).To(Succeed())

			_, err := driver.GetNode(ctx, node.ID)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
			_, err = driver.GetConversation(ctx, conv.ID)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})

	Describe("nodes", func() {
		var project *kb.Project

		BeforeEach(func() {
			project = kb.NewProject("atlas", "")
			Expect(driver.CreateProject(ctx, project)).To(Succeed())
		})

		It("upserts on repeated put", func() {
			node := kb.NewNode(project.ID, "draft", "v1", kb.KindDraft)
			Expect(driver.PutNode(ctx, node)).To(Succeed())

			node.Content = "v2"
			Expect(driver.PutNode(ctx, node)).To(Succeed())

			got, err := driver.GetNode(ctx, node.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("v2"))
		})

		It("lists only the project's nodes", func() {
			other := kb.NewProject("other", "")
			Expect(driver.CreateProject(ctx, other)).To(Succeed())

			Expect(driver.PutNode(ctx, kb.NewNode(project.ID, "a", "", kb.KindNote))).To(Succeed())
			Expect(driver.PutNode(ctx, kb.NewNode(other.ID, "b", "", kb.KindNote))).To(Succeed())

			nodes, err := driver.ListNodes(ctx, project.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
			Expect(nodes[0].Title).To(Equal("a"))
		})

		It("does not share link slices with callers", func() {
			node := kb.NewNode(project.ID, "linked", "", kb.KindNote)
			node.LinkTo("target")
			Expect(driver.PutNode(ctx, node)).To(Succeed())

			got, _ := driver.GetNode(ctx, node.ID)
			got.Links[0] = "mutated"

			fresh, _ := driver.GetNode(ctx, node.ID)
			Expect(fresh.Links).To(Equal([]string{"target"}))
		})
	})

	Describe("conversations", func() {
		var (
			project *kb.Project
			conv    *kb.Conversation
		)

		BeforeEach(func() {
			project = kb.NewProject("atlas", "")
			Expect(driver.CreateProject(ctx, project)).To(Succeed())
			conv = kb.NewConversation(project.ID, "thread")
			Expect(driver.CreateConversation(ctx, conv)).To(Succeed())
		})

		It("appends and lists messages in order", func() {
			Expect(driver.AppendMessage(ctx, kb.NewMessage(conv.ID, kb.RoleUser, "first"))).To(Succeed())
			Expect(driver.AppendMessage(ctx, kb.NewMessage(conv.ID, kb.RoleAssistant, "second"))).To(Succeed())

			messages, err := driver.ListMessages(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Content).To(Equal("first"))
			Expect(messages[1].Content).To(Equal("second"))
		})

		It("rejects messages for unknown conversations", func() {
			err := driver.AppendMessage(ctx, kb.NewMessage("ghost", kb.RoleUser, "hi"))
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})
})
