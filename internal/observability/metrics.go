package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// StatsSource provides a point-in-time copy of named counters.
type StatsSource interface {
	Snapshot() map[string]int64
}

// metricHelp holds help strings for known counters. Unknown counters are exported
// without help text.
var metricHelp = map[string]string{
	"crawls":           "Total crawls started",
	"pages_parsed":     "Total pages parsed",
	"parse_failures":   "Total page parse failures",
	"duplicates":       "Total URLs skipped because they were already visited",
	"skipped_depth":    "Total links not followed because the depth limit was reached",
	"skipped_deadline": "Total URLs skipped after the crawl deadline",
	"skipped_ignored":  "Total URLs skipped by an ignore pattern",
	"skipped_aborted":  "Total URLs skipped because their seed or the crawl was aborted",
	"links_scheduled":  "Total links scheduled for crawling",
	"active_workers":   "Currently active workers",
	"results_stored":   "Total crawl results written to storage",
	"store_failures":   "Total failed storage writes",
}

// gauges lists the counters that can go down.
var gauges = map[string]bool{
	"active_workers": true,
}

// Metrics serves crawl statistics in Prometheus text exposition format.
type Metrics struct {
	// Result metrics
	ResultsStored atomic.Int64
	StoreFailures atomic.Int64

	source StatsSource
	server *http.Server
	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance reading engine counters from source.
func NewMetrics(source StatsSource, logger *slog.Logger) *Metrics {
	return &Metrics{
		source: source,
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := "wordstalk_" + k
		kind := "gauge"
		if !gauges[k] {
			name += "_total"
			kind = "counter"
		}
		if help, ok := metricHelp[k]; ok {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		}
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %d\n", name, snap[k])
	}
}

// Snapshot returns engine counters merged with the result metrics.
func (m *Metrics) Snapshot() map[string]int64 {
	snap := make(map[string]int64)
	if m.source != nil {
		for k, v := range m.source.Snapshot() {
			snap[k] = v
		}
	}
	snap["results_stored"] = m.ResultsStored.Load()
	snap["store_failures"] = m.StoreFailures.Load()
	return snap
}

// Handler returns the mux serving metrics at path and a health check at /health.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer starts the metrics HTTP server. It returns once the port is bound.
func (m *Metrics) StartServer(port int, path string) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}

	m.server = &http.Server{
		Handler:           m.Handler(path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", ln.Addr().String(), "path", path)

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the metrics server, if running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
