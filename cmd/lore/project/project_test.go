package projectcmder_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	projectcmder "github.com/lorebookhq/lorebook/cmd/lore/project"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
	"github.com/lorebookhq/lorebook/pkg/kb"
)

var _ = Describe("NewProjectCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := projectcmder.NewProjectCmd()
		Expect(cmd.Use).To(Equal("project"))
	})

	It("has create, list, show, use, and rm subcommands", func() {
		cmd := projectcmder.NewProjectCmd()
		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("create", "list", "show", "use", "rm"))
	})
})

var _ = Describe("Project command execution", func() {
	var (
		tmpDir  string
		origDir string
		server  *httptest.Server
	)

	project := kb.NewProject("library", "campaign notes")

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "lore-project-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".lore"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		mux := http.NewServeMux()
		mux.HandleFunc("/v1/projects", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(project)
			case http.MethodGet:
				json.NewEncoder(w).Encode([]*kb.Project{project})
			}
		})
		mux.HandleFunc("/v1/projects/"+project.ID, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				json.NewEncoder(w).Encode(project)
			case http.MethodDelete:
				w.WriteHeader(http.StatusNoContent)
			}
		})
		mux.HandleFunc("/v1/projects/"+project.ID+"/nodes", func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode([]*kb.Node{})
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("create saves the new project as the active session", func() {
		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"create", "library", "--api-target", server.URL})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		state, err := dotdir.NewManager().LoadSessionState("")
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.ProjectID).To(Equal(project.ID))
	})

	It("list succeeds against the server", func() {
		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"list", "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("show succeeds against the server", func() {
		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"show", project.ID, "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("use records the selected project and clears the conversation", func() {
		manager := dotdir.NewManager()
		err := manager.SaveSession(&dotdir.SessionState{ProjectID: "old", ConversationID: "conv"}, "")
		Expect(err).NotTo(HaveOccurred())

		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"use", project.ID, "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())

		state, err := manager.LoadSessionState("")
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ProjectID).To(Equal(project.ID))
		Expect(state.ConversationID).To(BeEmpty())
	})

	It("rm clears the session when the active project is deleted", func() {
		manager := dotdir.NewManager()
		err := manager.SaveSession(&dotdir.SessionState{ProjectID: project.ID}, "")
		Expect(err).NotTo(HaveOccurred())

		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"rm", project.ID, "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())

		state, err := manager.LoadSessionState("")
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("surfaces API errors", func() {
		cmd := projectcmder.NewProjectCmd()
		cmd.SetArgs([]string{"use", "missing", "--api-target", server.URL})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
	})
})
