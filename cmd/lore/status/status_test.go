package statuscmder_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/lorebookhq/lorebook/cmd/lore/status"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("rejects arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has an api-target flag with the default target", func() {
		cmd := statuscmder.NewStatusCmd()
		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("t"))
		Expect(f.DefValue).To(Equal("http://localhost:8080"))
	})
})

var _ = Describe("Status command execution", func() {
	var (
		tmpDir  string
		origDir string
		server  *httptest.Server
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "lore-status-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".lore"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		mux := http.NewServeMux()
		mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("succeeds when no session state exists", func() {
		cmd := statuscmder.NewStatusCmd()
		cmd.SetArgs([]string{"--api-target", server.URL})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("succeeds with an active project", func() {
		manager := dotdir.NewManager()
		err := manager.SaveSession(&dotdir.SessionState{ProjectID: "p1"}, "")
		Expect(err).NotTo(HaveOccurred())

		cmd := statuscmder.NewStatusCmd()
		cmd.SetArgs([]string{"--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("succeeds with a resumed conversation", func() {
		manager := dotdir.NewManager()
		err := manager.SaveSession(&dotdir.SessionState{ProjectID: "p1", ConversationID: "c1"}, "")
		Expect(err).NotTo(HaveOccurred())

		cmd := statuscmder.NewStatusCmd()
		cmd.SetArgs([]string{"--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("does not fail when the server is unreachable", func() {
		cmd := statuscmder.NewStatusCmd()
		cmd.SetArgs([]string{"--api-target", "http://127.0.0.1:1"})
		Expect(cmd.Execute()).To(Succeed())
	})
})
