package researchcmder_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	researchcmder "github.com/lorebookhq/lorebook/cmd/lore/research"
	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var _ = Describe("NewResearchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := researchcmder.NewResearchCmd()
		Expect(cmd.Use).To(Equal("research <goal>"))
	})

	It("requires exactly one argument", func() {
		cmd := researchcmder.NewResearchCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"goal"})).NotTo(HaveOccurred())
	})

	It("has a --depth flag defaulting to 0", func() {
		cmd := researchcmder.NewResearchCmd()
		f := cmd.Flags().Lookup("depth")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("0"))
	})

	It("has a --raw flag", func() {
		cmd := researchcmder.NewResearchCmd()
		Expect(cmd.Flags().Lookup("raw")).NotTo(BeNil())
	})
})

var _ = Describe("Research command execution", func() {
	var (
		tmpDir  string
		origDir string
		server  *httptest.Server

		gotRequest *client.ResearchRequest
	)

	BeforeEach(func() {
		gotRequest = nil

		var err error
		tmpDir, err = os.MkdirTemp("", "lore-research-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".lore"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		err = dotdir.NewManager().SaveSession(&dotdir.SessionState{ProjectID: "p1"}, "")
		Expect(err).NotTo(HaveOccurred())

		mux := http.NewServeMux()
		mux.HandleFunc("/v1/research/stream", func(w http.ResponseWriter, r *http.Request) {
			var req client.ResearchRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			gotRequest = &req

			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`data: {"event":"status","status":"crawling"}` + "\n\n"))
			_, _ = w.Write([]byte(`data: {"event":"node","node":"n1","status":"visited"}` + "\n\n"))
			_, _ = w.Write([]byte(`data: {"event":"done","report":"# Research","artifact_id":"a1"}` + "\n\n"))
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("streams to completion against the active project", func() {
		cmd := researchcmder.NewResearchCmd()
		cmd.SetArgs([]string{"summarize the notes", "--raw", "--api-target", server.URL})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		Expect(gotRequest).NotTo(BeNil())
		Expect(gotRequest.ProjectID).To(Equal("p1"))
		Expect(gotRequest.Goal).To(Equal("summarize the notes"))
	})

	It("passes --depth through to the server", func() {
		cmd := researchcmder.NewResearchCmd()
		cmd.SetArgs([]string{"goal", "--depth", "3", "--raw", "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())
		Expect(gotRequest.Depth).To(Equal(3))
	})

	It("surfaces a streamed error event", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`data: {"event":"error","detail":"project has no nodes"}` + "\n\n"))
		}))
		defer failing.Close()

		cmd := researchcmder.NewResearchCmd()
		cmd.SetArgs([]string{"goal", "--raw", "--api-target", failing.URL})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no nodes"))
	})

	It("fails without an active project or --project", func() {
		err := dotdir.NewManager().ClearSession("")
		Expect(err).NotTo(HaveOccurred())

		cmd := researchcmder.NewResearchCmd()
		cmd.SetArgs([]string{"goal", "--api-target", server.URL})
		err = cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no active project"))
	})
})
