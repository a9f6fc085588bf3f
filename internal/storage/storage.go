package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
)

// Storage is the interface for all result backends.
type Storage interface {
	// Store persists the result of one crawl.
	Store(ctx context.Context, res *engine.Result) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the backend selected by cfg.Type.
func New(cfg config.OutputConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "json", "":
		return NewJSONStorage(cfg.Path, logger)
	case "jsonl":
		return NewJSONLStorage(cfg.Path, logger)
	case "csv":
		return NewCSVStorage(cfg.Path, logger)
	case "markdown":
		return NewMarkdownStorage(cfg.Path, logger)
	case "sqlite":
		path := cfg.Path
		if isStdout(path) {
			path = config.DefaultDatabasePath()
		}
		return NewSQLiteStorage(path, logger)
	case "mongodb":
		return NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
	case "multi":
		js, err := NewJSONStorage(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		ms, err := NewMongoStorage(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		if err != nil {
			js.Close()
			return nil, err
		}
		return NewMultiStorage([]Storage{js, ms}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
