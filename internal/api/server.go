package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// Job states.
const (
	JobRunning   = "running"
	JobDone      = "done"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// Job tracks one crawl started through the API.
type Job struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	StartPages []string       `json:"start_pages"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Result     *engine.Result `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`

	cancel context.CancelFunc
}

// StatsSource provides a point-in-time copy of named counters.
type StatsSource interface {
	Snapshot() map[string]int64
}

// Server provides a REST API that runs crawls as background jobs.
type Server struct {
	mux     *http.ServeMux
	port    int
	crawler engine.Crawler
	stats   StatsSource
	logger  *slog.Logger

	server *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	jobs        map[string]*Job
	finished    []string // finished job IDs, oldest first
	maxFinished int
	normalize   func(string) string
	jobsMu      sync.RWMutex
}

// DefaultMaxFinishedJobs is how many finished jobs a Server keeps by default.
const DefaultMaxFinishedJobs = 100

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithURLNormalizer rewrites every start page before it reaches the crawler.
func WithURLNormalizer(fn func(string) string) ServerOption {
	return func(s *Server) { s.normalize = fn }
}

// WithMaxFinishedJobs caps how many finished jobs are kept. Older ones are dropped.
// n <= 0 keeps DefaultMaxFinishedJobs.
func WithMaxFinishedJobs(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxFinished = n
		}
	}
}

// NewServer creates a new API server running crawls with crawler.
func NewServer(port int, crawler engine.Crawler, stats StatsSource, logger *slog.Logger, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		mux:         http.NewServeMux(),
		port:        port,
		crawler:     crawler,
		stats:       stats,
		logger:      logger.With("component", "api_server"),
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*Job),
		maxFinished: DefaultMaxFinishedJobs,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the API server. It returns once the port is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.server = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("API server starting", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests, cancels running jobs and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.cancel()
	s.wg.Wait()
	return err
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	s.mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("DELETE /api/jobs/{id}", s.handleCancelJob)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         config.Version,
		"max_parallelism": s.crawler.MaxParallelism(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "stats not available"})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartPages []string `json:"start_pages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(body.StartPages) == 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": types.ErrNoStartPages.Error()})
		return
	}
	for _, u := range body.StartPages {
		if err := config.ValidateURL(u); err != nil {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid start page %q: %v", u, err)})
			return
		}
	}

	if s.normalize != nil {
		for i, u := range body.StartPages {
			body.StartPages[i] = s.normalize(u)
		}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	job := &Job{
		ID:         uuid.NewString(),
		Status:     JobRunning,
		StartPages: body.StartPages,
		StartedAt:  time.Now().UTC(),
		cancel:     cancel,
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	view := *job
	s.jobsMu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, job)

	s.logger.Info("job started", "job_id", job.ID, "seeds", len(job.StartPages))
	s.jsonResponse(w, http.StatusAccepted, &view)
}

// run executes a job's crawl and records the outcome.
func (s *Server) run(ctx context.Context, job *Job) {
	defer s.wg.Done()
	defer job.cancel()

	res, err := s.crawler.Crawl(ctx, job.StartPages)
	finished := time.Now().UTC()

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	job.FinishedAt = &finished
	switch {
	case errors.Is(err, types.ErrInterrupted):
		job.Status = JobCancelled
		job.Error = err.Error()
	case err != nil:
		job.Status = JobFailed
		job.Error = err.Error()
	default:
		job.Status = JobDone
		job.Result = res
	}
	s.logger.Info("job finished", "job_id", job.ID, "status", job.Status)

	s.finished = append(s.finished, job.ID)
	for len(s.finished) > s.maxFinished {
		delete(s.jobs, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.jobsMu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	s.jobsMu.RUnlock()

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].StartedAt.Before(jobs[k].StartedAt) })
	s.jsonResponse(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.jobsMu.RLock()
	job, ok := s.jobs[id]
	var view Job
	if ok {
		view = *job
	}
	s.jobsMu.RUnlock()

	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, &view)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.jobsMu.RLock()
	job, ok := s.jobs[id]
	s.jobsMu.RUnlock()

	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	job.cancel()
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "cancelling", "id": id})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
