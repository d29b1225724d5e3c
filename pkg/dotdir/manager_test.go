package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var manager *dotdir.Manager

	BeforeEach(func() {
		manager = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("uses the override directory when provided", func() {
			override := filepath.Join(GinkgoT().TempDir(), "custom-lore")

			dir, err := manager.Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(override))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("creates the directory if missing", func() {
			override := filepath.Join(GinkgoT().TempDir(), "a", "b", "lore")

			dir, err := manager.Target(override)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("DraftsDir", func() {
		It("creates drafts/ under the target", func() {
			override := filepath.Join(GinkgoT().TempDir(), "lore")

			draftsDir, err := manager.DraftsDir(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(draftsDir).To(Equal(filepath.Join(override, "drafts")))

			info, err := os.Stat(draftsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})
})
