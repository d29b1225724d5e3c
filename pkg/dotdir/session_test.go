package dotdir_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var _ = Describe("SessionState", func() {
	var (
		manager *dotdir.Manager
		dir     string
	)

	BeforeEach(func() {
		manager = dotdir.NewManager()
		dir = filepath.Join(GinkgoT().TempDir(), "lore")
	})

	It("returns nil when no session exists", func() {
		state, err := manager.LoadSessionState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips a session", func() {
		saved := &dotdir.SessionState{
			ProjectID:      "proj-1",
			ConversationID: "conv-1",
		}
		Expect(manager.SaveSession(saved, dir)).To(Succeed())

		loaded, err := manager.LoadSessionState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(saved))
	})

	It("rejects saving a nil session", func() {
		Expect(manager.SaveSession(nil, dir)).NotTo(Succeed())
	})

	Describe("ClearSession", func() {
		It("removes an existing session", func() {
			Expect(manager.SaveSession(&dotdir.SessionState{ProjectID: "p"}, dir)).To(Succeed())
			Expect(manager.ClearSession(dir)).To(Succeed())

			state, err := manager.LoadSessionState(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("is a no-op when no session exists", func() {
			Expect(manager.ClearSession(dir)).To(Succeed())
		})
	})
})
