package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
	"github.com/IshaanNene/wordstalk/internal/wordcount"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS crawls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	urls_visited INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS word_counts (
	crawl_id INTEGER NOT NULL REFERENCES crawls(id),
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (crawl_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_word_counts_word ON word_counts(word);

CREATE TABLE IF NOT EXISTS failures (
	crawl_id INTEGER NOT NULL REFERENCES crawls(id),
	seed TEXT NOT NULL,
	error TEXT NOT NULL
);
`

// SQLiteStorage keeps every crawl in a SQLite database file. Each Store adds one
// row to crawls plus its ranked words and seed failures.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSQLiteStorage opens or creates the database at path.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path == "" || path == "-" {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("a database path is required")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create database dir: %w", err)}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create tables: %w", err)}
	}

	return &SQLiteStorage{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Store(ctx context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insert(ctx, res, time.Now().UTC()); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.count++
	s.logger.Debug("result stored in sqlite", "total", s.count)
	return nil
}

func (s *SQLiteStorage) insert(ctx context.Context, res *engine.Result, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	r, err := tx.ExecContext(ctx,
		`INSERT INTO crawls (timestamp, urls_visited) VALUES (?, ?)`,
		at, res.URLsVisited)
	if err != nil {
		return fmt.Errorf("insert crawl: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return fmt.Errorf("crawl id: %w", err)
	}

	for i, wc := range res.WordCounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO word_counts (crawl_id, rank, word, count) VALUES (?, ?, ?, ?)`,
			id, i+1, wc.Word, wc.Count); err != nil {
			return fmt.Errorf("insert word %q: %w", wc.Word, err)
		}
	}
	for _, f := range res.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (crawl_id, seed, error) VALUES (?, ?, ?)`,
			id, f.Seed, f.Error); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Latest returns the most recently stored crawl, without its failures.
func (s *SQLiteStorage) Latest(ctx context.Context) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res engine.Result
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, urls_visited FROM crawls ORDER BY id DESC LIMIT 1`).Scan(&id, &res.URLsVisited)
	if err != nil {
		return res, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("latest crawl: %w", err)}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT word, count FROM word_counts WHERE crawl_id = ? ORDER BY rank`, id)
	if err != nil {
		return res, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("query words: %w", err)}
	}
	defer rows.Close()

	for rows.Next() {
		var wc wordcount.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return res, &types.StorageError{Backend: s.Name(), Err: err}
		}
		res.WordCounts = append(res.WordCounts, wc)
	}
	if err := rows.Err(); err != nil {
		return res, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return res, nil
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("sqlite storage closing", "path", s.path, "total_results", s.count)
	return s.db.Close()
}
