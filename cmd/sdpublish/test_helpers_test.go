package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sdpublish/internal/config"
	"sdpublish/internal/testsupport"
)

const toolPrefix = "/arcgis/rest/services/System/PublishingTools/GPServer/Publish Service Definition"

// fakeSite is a minimal ArcGIS Server site. Uploads are keyed by file name,
// jobs by "job-" plus the file name without extension. Each job reports
// esriJobSubmitted, then esriJobExecuting, then its final status, with a
// growing message log as a real GP server does.
type fakeSite struct {
	t      *testing.T
	server *httptest.Server
	token  string

	mu            sync.Mutex
	rejectUploads map[string]bool
	jobStatus     map[string]string
	jobPolls      map[string]int
	uploads       int
	tokenRequests int
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	site := &fakeSite{
		t:             t,
		token:         "test-token",
		rejectUploads: map[string]bool{},
		jobStatus:     map[string]string{},
		jobPolls:      map[string]int{},
	}
	site.server = httptest.NewServer(http.HandlerFunc(site.handle))
	t.Cleanup(site.server.Close)
	return site
}

func (s *fakeSite) rejectUpload(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectUploads[name] = true
}

func (s *fakeSite) setJobStatus(jobID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobStatus[jobID] = status
}

func (s *fakeSite) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectUploads = map[string]bool{}
	s.jobStatus = map[string]string{}
	s.jobPolls = map[string]int{}
}

func (s *fakeSite) polls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobPolls[jobID]
}

func (s *fakeSite) counts() (uploads, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads, s.tokenRequests
}

func (s *fakeSite) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/arcgis/rest/info":
		respond(w, map[string]any{
			"currentVersion": 11.3,
			"authInfo":       map[string]any{"isTokenBasedSecurity": true},
		})
		return
	case path == "/arcgis/admin/generateToken":
		s.mu.Lock()
		s.tokenRequests++
		s.mu.Unlock()
		if r.FormValue("username") != "admin" || r.FormValue("password") != "secret" {
			respond(w, map[string]any{"error": map[string]any{"code": 400, "message": "Unable to generate token."}})
			return
		}
		respond(w, map[string]any{"token": s.token, "expires": 4102444800000})
		return
	}

	if r.FormValue("token") != s.token {
		respond(w, map[string]any{"error": map[string]any{"code": 498, "message": "Invalid token."}})
		return
	}

	switch {
	case path == "/arcgis/admin/uploads/upload":
		_, header, err := r.FormFile("itemFile")
		if err != nil {
			s.t.Errorf("upload without itemFile: %v", err)
			http.Error(w, "missing itemFile", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.uploads++
		rejected := s.rejectUploads[header.Filename]
		s.mu.Unlock()
		if rejected {
			respond(w, map[string]any{"status": "error", "messages": []string{"upload rejected"}})
			return
		}
		respond(w, map[string]any{"status": "success", "item": map[string]any{"itemID": "item-" + header.Filename}})
	case path == toolPrefix+"/submitJob":
		name := strings.TrimPrefix(r.FormValue("in_sdp_id"), "item-")
		respond(w, map[string]any{"jobId": "job-" + strings.TrimSuffix(name, filepath.Ext(name)), "jobStatus": "esriJobSubmitted"})
	case strings.HasPrefix(path, toolPrefix+"/jobs/"):
		jobID := strings.TrimPrefix(path, toolPrefix+"/jobs/")
		s.mu.Lock()
		s.jobPolls[jobID]++
		poll := s.jobPolls[jobID]
		final, ok := s.jobStatus[jobID]
		s.mu.Unlock()
		if !ok {
			final = "esriJobSucceeded"
		}
		respond(w, jobDocument(jobID, poll, final))
	default:
		http.NotFound(w, r)
	}
}

func jobDocument(jobID string, poll int, final string) map[string]any {
	steps := []struct{ status, message string }{
		{"esriJobSubmitted", "Submitted."},
		{"esriJobExecuting", "Executing..."},
		{final, "Finished with status " + final + "."},
	}
	step := min(poll, len(steps)) - 1
	messages := make([]map[string]string, 0, step+1)
	for _, s := range steps[:step+1] {
		messages = append(messages, map[string]string{"type": "esriJobMessageTypeInformative", "description": s.message})
	}
	return map[string]any{
		"jobId":     jobID,
		"jobStatus": steps[step].status,
		"messages":  messages,
		"results":   map[string]any{},
		"inputs":    map[string]any{"in_sdp_id": map[string]string{"paramUrl": "inputs/in_sdp_id"}},
	}
}

func respond(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

type cliTestEnv struct {
	cfg        *config.Config
	site       *fakeSite
	configPath string
	inputDir   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("SDPUBLISH_TOKEN", "")
	t.Setenv("SDPUBLISH_USERNAME", "")
	t.Setenv("SDPUBLISH_PASSWORD", "")

	site := newFakeSite(t)
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithServerURL(site.server.URL)}, opts...)...)
	base := testsupport.BaseDir(cfg)

	inputDir := filepath.Join(base, "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, site: site, configPath: configPath, inputDir: inputDir}
}

func (e *cliTestEnv) addArtifacts(t *testing.T, names ...string) {
	t.Helper()
	testsupport.WriteArtifacts(t, e.inputDir, names...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	args = append([]string(nil), args...)
	if len(args) > 0 && (args[0] == "publish" || args[0] == "retry") {
		// Keep the three-step job sequence of fakeSite fast.
		args = append([]string{args[0], "--poll-interval", "10ms"}, args[1:]...)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[server]
url = %q
context = %q
username = %q
password = %q
token = %q
referer = %q
request_timeout = 10

[publish]
workers = %d
poll_interval = %d

[paths]
state_dir = %q
log_dir = %q

[logging]
level = "warn"
`,
		cfg.Server.URL,
		cfg.Server.Context,
		cfg.Server.Username,
		cfg.Server.Password,
		cfg.Server.Token,
		cfg.Server.Referer,
		cfg.Publish.Workers,
		cfg.Publish.PollInterval,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
