package sqlite_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("round-trips a project", func() {
		project := kb.NewProject("atlas", "maps of everything")
		Expect(driver.CreateProject(ctx, project)).To(Succeed())

		got, err := driver.GetProject(ctx, project.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("atlas"))
		Expect(got.Description).To(Equal("maps of everything"))
	})

	It("round-trips node tags and links", func() {
		project := kb.NewProject("atlas", "")
		Expect(driver.CreateProject(ctx, project)).To(Succeed())

		node := kb.NewNode(project.ID, "caching", "LRU notes", kb.KindNote)
		node.Tags = []string{"perf", "design"}
		node.LinkTo("other-node")
		Expect(driver.PutNode(ctx, node)).To(Succeed())

		got, err := driver.GetNode(ctx, node.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Tags).To(Equal([]string{"perf", "design"}))
		Expect(got.Links).To(Equal([]string{"other-node"}))
		Expect(got.Kind).To(Equal(kb.KindNote))
	})

	It("upserts nodes on conflict", func() {
		project := kb.NewProject("atlas", "")
		Expect(driver.CreateProject(ctx, project)).To(Succeed())

		node := kb.NewNode(project.ID, "draft", "v1", kb.KindDraft)
		Expect(driver.PutNode(ctx, node)).To(Succeed())

		node.Content = "v2"
		Expect(driver.PutNode(ctx, node)).To(Succeed())

		got, err := driver.GetNode(ctx, node.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content).To(Equal("v2"))
	})

	It("cascades project deletion", func() {
		project := kb.NewProject("atlas", "")
		Expect(driver.CreateProject(ctx, project)).To(Succeed())

		node := kb.NewNode(project.ID, "note", "", kb.KindNote)
		Expect(driver.PutNode(ctx, node)).To(Succeed())

		Expect(driver.DeleteProject(ctx, project.ID)).To(Succeed())

		_, err := driver.GetNode(ctx, node.ID)
		Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
	})

	It("keeps message order by insertion", func() {
		project := kb.NewProject("atlas", "")
		Expect(driver.CreateProject(ctx, project)).To(Succeed())

		conv := kb.NewConversation(project.ID, "thread")
		Expect(driver.CreateConversation(ctx, conv)).To(Succeed())

		Expect(driver.AppendMessage(ctx, kb.NewMessage(conv.ID, kb.RoleUser, "q1"))).To(Succeed())
		Expect(driver.AppendMessage(ctx, kb.NewMessage(conv.ID, kb.RoleAssistant, "a1"))).To(Succeed())
		Expect(driver.AppendMessage(ctx, kb.NewMessage(conv.ID, kb.RoleUser, "q2"))).To(Succeed())

		messages, err := driver.ListMessages(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(3))
		Expect(messages[0].Content).To(Equal("q1"))
		Expect(messages[2].Content).To(Equal("q2"))
	})

	It("returns NotFoundError for unknown records", func() {
		_, err := driver.GetProject(ctx, "ghost")
		Expect(err).To(MatchError(storage.NotFoundError{Kind: "project", ID: "ghost"}))

		err = driver.DeleteNode(ctx, "ghost")
		Expect(err).To(MatchError(storage.NotFoundError{Kind: "node", ID: "ghost"}))
	})
})
