package services

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

const testTarget = "openrouter.test/target-model"

type recordedRequest struct {
	Method string
	Path   string
	ID     string
	Header http.Header
	Body   []byte
	At     time.Time
}

// fakeOpenWebUI is an httptest server that records every request it sees
type fakeOpenWebUI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeOpenWebUI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeOpenWebUI {
	t.Helper()
	f := &fakeOpenWebUI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			ID:     r.URL.Query().Get("id"),
			Header: r.Header.Clone(),
			Body:   body,
			At:     time.Now(),
		})
		f.mu.Unlock()
		handler(w, r, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOpenWebUI) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// PostsFor returns the update calls made for one record id
func (f *fakeOpenWebUI) PostsFor(id string) []recordedRequest {
	var out []recordedRequest
	for _, r := range f.Requests() {
		if r.Method == http.MethodPost && r.ID == id {
			out = append(out, r)
		}
	}
	return out
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Profile:        config.ProfileRemote,
		BaseURL:        baseURL,
		APIPath:        "/api/v1",
		TargetModel:    testTarget,
		APIKey:         "test-key",
		CFClientID:     "cf-id",
		CFClientSecret: "cf-secret",
		ProxyHeaders:   true,
		BatchMode:      true,
		Workers:        3,
		Timeout:        5 * time.Second,
		ListingPaths:   config.DefaultListingPaths,
		UpdatePaths:    config.DefaultUpdatePaths,
	}
}

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, true), &buf
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// echoUpdate answers an update call like OpenWebUI does: with the stored record
func echoUpdate(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func mustModel(t *testing.T, body string) *models.Model {
	t.Helper()
	var m models.Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("Failed to decode model %s: %v", body, err)
	}
	return &m
}

func decodeFields(t *testing.T, body []byte) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("Failed to decode body %s: %v", body, err)
	}
	return fields
}
