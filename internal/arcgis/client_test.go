package arcgis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sdpublish/internal/config"
	"sdpublish/internal/publish"
	"sdpublish/internal/services"
)

const toolPrefix = "/arcgis/rest/services/System/PublishingTools/GPServer/Publish Service Definition"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/arcgis/", "tok-1", WithHTTPClient(server.Client()), WithReferer("host.example"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "tok"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty url, got %v", err)
	}
	if _, err := NewClient("ftp://gis.example.com/arcgis", "tok"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for ftp url, got %v", err)
	}
	if _, err := NewClient("https://gis.example.com/arcgis", "  "); !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication error for blank token, got %v", err)
	}
	client, err := NewClient("https://gis.example.com/arcgis/", "tok")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := client.ContextURL(); got != "https://gis.example.com/arcgis" {
		t.Fatalf("unexpected context url %q", got)
	}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Roads.sd")
	if err := os.WriteFile(path, []byte("service-definition-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/arcgis/admin/uploads/upload" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Referer"); got != "host.example" {
			t.Errorf("unexpected referer %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("f") != "json" || r.FormValue("token") != "tok-1" {
			t.Errorf("unexpected form fields: %v", r.MultipartForm.Value)
		}
		file, header, err := r.FormFile("itemFile")
		if err != nil {
			t.Errorf("itemFile missing: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "Roads.sd" || string(data) != "service-definition-bytes" {
			t.Errorf("unexpected file %q with %q", header.Filename, data)
		}
		writeJSON(w, `{"status":"success","item":{"itemID":"i1234","itemName":"Roads.sd"}}`)
	})

	itemID, err := client.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if itemID != "i1234" {
		t.Fatalf("unexpected item id %q", itemID)
	}
}

func TestUploadFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sd")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	bodies := map[string]string{
		"status error":  `{"status":"error","messages":["Item could not be uploaded"]}`,
		"error object":  `{"error":{"code":500,"message":"Upload failed"}}`,
		"missing id":    `{"status":"success","item":{}}`,
		"invalid token": `{"error":{"code":498,"message":"Invalid token."}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				writeJSON(w, body)
			})
			_, err := client.Upload(context.Background(), path)
			if !errors.Is(err, services.ErrUpload) {
				t.Fatalf("expected upload error, got %v", err)
			}
			if name == "invalid token" && !IsAuthError(err) {
				t.Fatalf("expected authentication classification, got %v", err)
			}
		})
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for a missing file")
	})
	if _, err := client.Upload(context.Background(), filepath.Join(dir, "missing.sd")); !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error for missing file, got %v", err)
	}
}

func TestSubmitAndQuery(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("token") != "tok-1" || r.Form.Get("f") != "json" {
			t.Errorf("missing token or format: %v", r.Form)
		}
		switch r.URL.Path {
		case toolPrefix + "/submitJob":
			if got := r.Form.Get("in_sdp_id"); got != "i1234" {
				t.Errorf("unexpected in_sdp_id %q", got)
			}
			writeJSON(w, `{"jobId":"j42","jobStatus":"esriJobSubmitted"}`)
		case toolPrefix + "/jobs/j42":
			if polls.Add(1) == 1 {
				writeJSON(w, `{"jobId":"j42","jobStatus":"esriJobExecuting"}`)
				return
			}
			writeJSON(w, `{"jobId":"j42","jobStatus":"esriJobSucceeded","messages":[{"type":"esriJobMessageTypeInformative","description":"done"}]}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	jobID, err := client.Submit(context.Background(), "i1234")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID != "j42" {
		t.Fatalf("unexpected job id %q", jobID)
	}
	state, err := client.Query(context.Background(), jobID)
	if err != nil || state != publish.JobStateExecuting {
		t.Fatalf("first query = %q, %v", state, err)
	}
	status, err := client.JobStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if status.State() != publish.JobStateSucceeded || len(status.Messages) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestTrackerResolvesJobsWithMessageLog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != toolPrefix+"/jobs/j1" {
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, `{"jobId":"j1","jobStatus":"esriJobSucceeded","messages":[`+
			`{"type":"esriJobMessageTypeInformative","description":"Submitted."},`+
			`{"type":"esriJobMessageTypeInformative","description":"Succeeded at Mon Mar 02 10:00:00 2026"}]}`)
	})

	tracker := publish.NewTracker(client, publish.TrackerOptions{PollInterval: time.Millisecond, MaxRounds: 5}, nil)
	result := tracker.Resolve(context.Background(), []publish.PendingJob{{JobID: "j1", Item: "/in/roads.sd"}})
	if len(result.Succeeded) != 1 || len(result.Failed) != 0 {
		t.Fatalf("expected one success, got %+v", result)
	}
	if result.Rounds != 1 {
		t.Fatalf("expected a single polling round, got %d", result.Rounds)
	}
}

func TestStatusErrorWithMessageObjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"error","messages":[{"type":"esriJobMessageTypeError","description":"Service already exists."}]}`)
	})
	_, err := client.Submit(context.Background(), "i1")
	if !errors.Is(err, services.ErrSubmit) {
		t.Fatalf("expected submit error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Service already exists.") {
		t.Fatalf("expected message description in error, got %v", err)
	}
}

func TestSubmitRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"error":{"code":400,"message":"Unable to complete operation.","details":["Invalid item"]}}`)
	})
	_, err := client.Submit(context.Background(), "i1")
	if !errors.Is(err, services.ErrSubmit) {
		t.Fatalf("expected submit error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid item") {
		t.Fatalf("expected details in error, got %v", err)
	}
}

func TestQueryErrorsArePollErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http 502": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
		"invalid token": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"error":{"code":498,"message":"Invalid token."}}`)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>maintenance</html>")
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.Query(context.Background(), "j1")
			if !errors.Is(err, services.ErrPoll) || !services.IsTransient(err) {
				t.Fatalf("expected transient poll error, got %v", err)
			}
		})
	}
}

func TestQueryUnknownStatusIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"jobId":"j1","jobStatus":"esriJobTimedOut"}`)
	})
	state, err := client.Query(context.Background(), "j1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if state != publish.JobStateUnknown || !state.IsTerminal() {
		t.Fatalf("expected terminal unknown state, got %q", state)
	}
}

func TestFetchServerInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/arcgis/rest/info" || r.URL.Query().Get("f") != "json" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		writeJSON(w, `{"currentVersion":11.1,"fullVersion":"11.1.0","authInfo":{"isTokenBasedSecurity":true}}`)
	}))
	defer server.Close()

	info, err := FetchServerInfo(context.Background(), server.Client(), server.URL+"/arcgis")
	if err != nil {
		t.Fatalf("fetch info: %v", err)
	}
	if info.Version() != "11.1.0" || !info.AuthInfo.IsTokenBasedSecurity {
		t.Fatalf("unexpected info %+v", info)
	}
	if got := (ServerInfo{CurrentVersion: 10.9}).Version(); got != "10.9" {
		t.Fatalf("unexpected fallback version %q", got)
	}
}

func TestNewHTTPClientHonoursConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RequestTimeout = 7
	cfg.Server.TLSSkipVerify = true
	client := NewHTTPClient(&cfg)
	if client.Timeout != 7*time.Second {
		t.Fatalf("unexpected timeout %s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok || transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure transport, got %#v", client.Transport)
	}
}
