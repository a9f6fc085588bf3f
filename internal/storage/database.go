package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// MongoStorage writes one document per crawl to a MongoDB collection.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB and verifies the connection.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

// resultDocument converts a result to BSON. Word counts are an ordered document so
// the rank order survives the round trip.
func resultDocument(res *engine.Result, at time.Time) bson.D {
	words := make(bson.D, 0, len(res.WordCounts))
	for _, wc := range res.WordCounts {
		words = append(words, bson.E{Key: wc.Word, Value: wc.Count})
	}

	failures := make(bson.A, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, bson.D{
			{Key: "seed", Value: f.Seed},
			{Key: "error", Value: f.Error},
		})
	}

	return bson.D{
		{Key: "timestamp", Value: at},
		{Key: "urls_visited", Value: res.URLsVisited},
		{Key: "word_counts", Value: words},
		{Key: "failures", Value: failures},
	}
}

func (s *MongoStorage) Store(ctx context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, resultDocument(res, time.Now().UTC())); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert: %w", err)}
	}

	s.count++
	s.logger.Debug("result stored in mongodb", "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_results", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes results to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Store writes to every backend and returns the first error.
func (s *MultiStorage) Store(ctx context.Context, res *engine.Result) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, res); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
