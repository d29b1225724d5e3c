package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/lorebookhq/lorebook/cmd/lore/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the listen flag with the config default", func() {
		cmd := servecmder.NewServeCmd()
		f := cmd.Flags().Lookup("listen")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("l"))
		Expect(f.DefValue).To(Equal(":8080"))
	})

	It("registers the storage flags with config defaults", func() {
		cmd := servecmder.NewServeCmd()

		driver := cmd.Flags().Lookup("storage-driver")
		Expect(driver).NotTo(BeNil())
		Expect(driver.DefValue).To(Equal("sqlite"))

		sqlitePath := cmd.Flags().Lookup("sqlite")
		Expect(sqlitePath).NotTo(BeNil())
		Expect(sqlitePath.DefValue).To(Equal("lorebook.db"))
	})

	It("registers the search stack flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("vector-store-provider")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("embedding-provider")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("embedding-dimensions")).NotTo(BeNil())
	})

	It("registers the llm flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("llm-provider")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("llm-target")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("llm-model")).NotTo(BeNil())
	})
})
