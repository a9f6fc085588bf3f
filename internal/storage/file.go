package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// isStdout reports whether path selects standard output.
func isStdout(path string) bool {
	return path == "" || path == "-"
}

// openOutput opens path for writing, or returns stdout. The returned closer is a
// no-op for stdout.
func openOutput(path string, flag int) (io.Writer, func() error, error) {
	if isStdout(path) {
		return os.Stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// --- JSON Storage ---

// JSONStorage writes the latest result as an indented JSON document. Each Store
// replaces the previous content.
type JSONStorage struct {
	path   string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONStorage creates a JSON storage writing to path, or to stdout when path is
// empty or "-".
func NewJSONStorage(path string, logger *slog.Logger) (*JSONStorage, error) {
	if !isStdout(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create output dir: %w", err)}
		}
	}
	return &JSONStorage{
		path:   path,
		logger: logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(_ context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, closeFn, err := openOutput(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		closeFn()
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode JSON: %w", err)}
	}
	if err := closeFn(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count++
	s.logger.Debug("result written", "path", s.path, "words", len(res.WordCounts))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isStdout(s.path) {
		s.logger.Info("JSON written", "path", s.path, "results", s.count)
	}
	return nil
}

// --- JSONL Storage ---

// JSONLStorage appends each result as one line of JSON.
type JSONLStorage struct {
	path    string
	w       io.Writer
	closeFn func() error
	enc     *json.Encoder
	mu      sync.Mutex
	count   int
	logger  *slog.Logger
}

// NewJSONLStorage creates a JSONL storage appending to path, or writing to stdout.
func NewJSONLStorage(path string, logger *slog.Logger) (*JSONLStorage, error) {
	w, closeFn, err := openOutput(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: err}
	}
	return &JSONLStorage{
		path:    path,
		w:       w,
		closeFn: closeFn,
		enc:     json.NewEncoder(w),
		logger:  logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(_ context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(res); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode JSONL: %w", err)}
	}
	s.count++
	return nil
}

func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("JSONL written", "path", s.path, "results", s.count)
	return s.closeFn()
}

// --- CSV Storage ---

// CSVStorage writes ranked word counts as "rank,word,count" rows. The header is
// written once; results from later crawls are appended.
type CSVStorage struct {
	path    string
	closeFn func() error
	writer  *csv.Writer
	header  bool
	mu      sync.Mutex
	count   int
	logger  *slog.Logger
}

// NewCSVStorage creates a CSV storage writing to path, or to stdout.
func NewCSVStorage(path string, logger *slog.Logger) (*CSVStorage, error) {
	w, closeFn, err := openOutput(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: err}
	}
	return &CSVStorage{
		path:    path,
		closeFn: closeFn,
		writer:  csv.NewWriter(w),
		logger:  logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.header {
		if err := s.writer.Write([]string{"rank", "word", "count"}); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("write CSV header: %w", err)}
		}
		s.header = true
	}

	for i, wc := range res.WordCounts {
		row := []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)}
		if err := s.writer.Write(row); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("write CSV row: %w", err)}
		}
		s.count++
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *CSVStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("CSV written", "path", s.path, "rows", s.count)
	s.writer.Flush()
	return s.closeFn()
}
