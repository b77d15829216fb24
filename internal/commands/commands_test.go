package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/services"
)

const target = "openrouter.test/target-model"

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvCFClientID, "")
	t.Setenv(config.EnvCFClientSecret, "")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// openWebUI serves listing as the model collection and echoes updates for
// every id except "broken"
func openWebUI(t *testing.T, listing string) (*httptest.Server, *int32) {
	t.Helper()
	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Path == "/api/v1/models" {
				w.Write([]byte(listing))
				return
			}
			w.Write([]byte("not here"))
			return
		}
		atomic.AddInt32(&posts, 1)
		body, _ := io.ReadAll(r.Body)
		if r.URL.Query().Get("id") == "broken" {
			w.Write([]byte(`{"detail":"Model not found"}`))
			return
		}
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &posts
}

const scenarioListing = `{"data":[
	{"id":"a","name":"Alpha","base_model_id":"` + target + `"},
	{"id":"b","name":"Beta","base_model_id":"old/model"},
	{"id":"broken","name":"Broken","base_model_id":"old/model"}
]}`

func TestUpdate_FullRun(t *testing.T) {
	isolate(t)
	server, posts := openWebUI(t, scenarioListing)
	report := filepath.Join(t.TempDir(), "run.json")
	metricsFile := filepath.Join(t.TempDir(), "updater.prom")

	out, stderr, err := execute(t,
		"--url", server.URL,
		"--api-key", "test-key",
		"--target-model", target,
		"--report", report,
		"--metrics-file", metricsFile,
	)
	if err != nil {
		t.Fatalf("update failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"Starting model update process...",
		"Target model: " + target,
		"Using OpenWebUI URL: " + server.URL + "/api/v1",
		"Found 3 models to update",
		"Using parallel processing with 5 workers",
		"Successfully updated: 1 models",
		"Skipped (already using target model): 1 models",
		"Failed to update: 1 models",
		"Some models could not be updated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in output:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr, "- Complete") {
		t.Errorf("Progress should go to stderr:\n%s", stderr)
	}
	// b once, broken on both paths
	if got := atomic.LoadInt32(posts); got != 3 {
		t.Errorf("Expected 3 update calls, got %d", got)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("Report is not JSON: %v", err)
	}
	if summary["updated"] != float64(1) || summary["failed"] != float64(1) {
		t.Errorf("Unexpected report counts: %v", summary)
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Errorf("Metrics file not written: %v", err)
	}
}

func TestUpdate_RootAndSubcommandAgree(t *testing.T) {
	isolate(t)
	server, _ := openWebUI(t, `[{"id":"b","name":"Beta"}]`)

	out, _, err := execute(t, "update", "--url", server.URL, "--no-batch", "--delay", "1ms")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "Using sequential processing") {
		t.Errorf("--no-batch not honoured:\n%s", out)
	}
	if !strings.Contains(out, "All applicable models have been successfully updated to use") {
		t.Errorf("Missing success summary:\n%s", out)
	}
}

func TestUpdate_FatalFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		err     error
		log     string
	}{
		{"no collection anywhere", "<html>Access denied</html>", services.ErrFetchFailed, "Failed to fetch models from any endpoint"},
		{"empty collection", `{"models":[]}`, services.ErrNoModels, "No models found in the API response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			server, posts := openWebUI(t, tt.listing)

			out, _, err := execute(t, "--url", server.URL)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected %v, got %v", tt.err, err)
			}
			if !strings.Contains(out, tt.log) {
				t.Errorf("Missing %q in output:\n%s", tt.log, out)
			}
			if strings.Contains(out, "Found") {
				t.Error("No processing should happen after a fatal fetch error")
			}
			if atomic.LoadInt32(posts) != 0 {
				t.Error("No updates should be sent")
			}
		})
	}
}

func TestUpdate_BadConfig(t *testing.T) {
	isolate(t)

	if _, _, err := execute(t, "--profile", "staging"); err == nil {
		t.Error("Expected error for unknown profile")
	}
	if _, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
	if _, _, err := execute(t, "--workers", "many"); err == nil {
		t.Error("Expected error for bad flag value")
	}
}

func TestList_DoesNotUpdate(t *testing.T) {
	isolate(t)
	server, posts := openWebUI(t, `[
		{"id":"a","name":"Alpha","base_model_id":"`+target+`"},
		{"id":"b","name":"Beta","base_model_id":"old/model"},
		{"id":"b","name":"Beta again"},
		{"name":"No ID"}
	]`)

	out, _, err := execute(t, "list", "--url", server.URL, "--target-model", target)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	for _, want := range []string{
		"Target model: " + target,
		"1. skip",
		"2. update    b [Beta]: old/model -> " + target,
		"3. duplicate",
		"4. ignore    (missing ID)",
		"Total: 4 models (1 to update, 1 already on target, 2 ignored)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in output:\n%s", want, out)
		}
	}
	if atomic.LoadInt32(posts) != 0 {
		t.Error("list must not send updates")
	}
}

func TestConfigShow(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "config", "show", "--profile", "local", "--api-key", "sk-1234567890abcdef")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"profile: local", "url: http://localhost:8080", "workers: 10", "proxy_headers: false", "sk-1****cdef"} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sk-1234567890abcdef") {
		t.Error("API key leaked in config show")
	}
}

func TestVersion(t *testing.T) {
	AppVersion = "1.2.3"
	defer func() { AppVersion = "0.0.0-dev" }()

	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "model_updater 1.2.3") {
		t.Errorf("Unexpected version output %q", out)
	}
}
