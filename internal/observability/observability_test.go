package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IshaanNene/wordstalk/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type staticStats map[string]int64

func (s staticStats) Snapshot() map[string]int64 { return s }

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(staticStats{"pages_parsed": 12, "active_workers": 3, "custom": 1}, testLogger)
	m.ResultsStored.Add(2)

	srv := httptest.NewServer(m.Handler("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		"# HELP wordstalk_pages_parsed_total Total pages parsed\n",
		"# TYPE wordstalk_pages_parsed_total counter\n",
		"wordstalk_pages_parsed_total 12\n",
		"# TYPE wordstalk_active_workers gauge\n",
		"wordstalk_active_workers 3\n",
		"wordstalk_results_stored_total 2\n",
		"wordstalk_custom_total 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "# HELP wordstalk_custom_total") {
		t.Error("unknown counters should have no help line")
	}
}

func TestHealthEndpoint(t *testing.T) {
	m := NewMetrics(nil, testLogger)
	srv := httptest.NewServer(m.Handler("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestStartServerAndShutdown(t *testing.T) {
	m := NewMetrics(staticStats{}, testLogger)
	// Port 0 picks a free port.
	if err := m.StartServer(0, "/metrics"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if err := NewMetrics(nil, testLogger).Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown without server should be a no-op, got %v", err)
	}
}

// --- Logger Tests ---

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wordstalk.log")
	logger, closer, err := NewLogger(config.LoggingConfig{
		Level:     "debug",
		Format:    "json",
		Output:    path,
		MaxSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hello", "component", "test")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("expected JSON log line, got %s", data)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "warn", Output: "stderr"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestNewLoggerRejectsBadConfig(t *testing.T) {
	if _, _, err := NewLogger(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for bad level")
	}
	if _, _, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for bad format")
	}
}
