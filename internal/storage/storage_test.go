package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
	"github.com/IshaanNene/wordstalk/internal/wordcount"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testResult() *engine.Result {
	return &engine.Result{
		WordCounts:  wordcount.Top(map[string]int{"a": 3, "bb": 3, "c": 5, "dd": 1}, 3),
		URLsVisited: 4,
	}
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	s, err := NewJSONStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := s.Store(context.Background(), testResult()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	// Keys must appear in rank order, not alphabetical order.
	c, bb, a := strings.Index(out, `"c"`), strings.Index(out, `"bb"`), strings.Index(out, `"a"`)
	if !(c >= 0 && c < bb && bb < a) {
		t.Errorf("word counts are not in rank order:\n%s", out)
	}
	if !strings.Contains(out, `"urlsVisited": 4`) {
		t.Errorf("missing urlsVisited:\n%s", out)
	}
	if strings.Contains(out, "failures") {
		t.Errorf("empty failures should be omitted:\n%s", out)
	}
}

func TestJSONStorageReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	s, err := NewJSONStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	s.Store(context.Background(), testResult())
	s.Store(context.Background(), &engine.Result{WordCounts: wordcount.Ranking{}, URLsVisited: 0})

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `"c"`) {
		t.Errorf("second store should replace the first:\n%s", data)
	}
}

func TestJSONLStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s, err := NewJSONLStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Store(context.Background(), testResult()); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"wordCounts":{"c":5,"bb":3,"a":3}`) {
		t.Errorf("unexpected line: %s", lines[0])
	}
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Store(context.Background(), testResult())
	s.Store(context.Background(), testResult())
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "rank,word,count" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if strings.Join(rows[1], ",") != "1,c,5" || strings.Join(rows[2], ",") != "2,bb,3" {
		t.Errorf("unexpected rows %v", rows[1:3])
	}
}

func TestResultDocumentOrder(t *testing.T) {
	res := testResult()
	res.Failures = []engine.SeedFailure{{Seed: "s", Error: "boom"}}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := resultDocument(res, at)
	if doc[0].Key != "timestamp" || doc[1].Value != 4 {
		t.Errorf("unexpected document header %v", doc[:2])
	}

	var keys []string
	for _, e := range doc[2].Value.(bson.D) {
		keys = append(keys, e.Key)
	}
	if strings.Join(keys, ",") != "c,bb,a" {
		t.Errorf("expected rank-ordered word counts, got %v", keys)
	}
}

// --- Multi-Storage ---

type memStorage struct {
	name    string
	stored  int
	closed  bool
	failErr error
}

func (m *memStorage) Name() string { return m.name }
func (m *memStorage) Store(context.Context, *engine.Result) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.stored++
	return nil
}
func (m *memStorage) Close() error {
	m.closed = true
	return nil
}

func TestMultiStorage(t *testing.T) {
	errDown := errors.New("backend down")
	a := &memStorage{name: "a"}
	b := &memStorage{name: "b", failErr: errDown}
	c := &memStorage{name: "c"}

	s := NewMultiStorage([]Storage{a, b, c}, testLogger)
	err := s.Store(context.Background(), testResult())
	if !errors.Is(err, errDown) {
		t.Errorf("expected first backend error, got %v", err)
	}
	if a.stored != 1 || c.stored != 1 {
		t.Error("a failing backend should not stop the others")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("every backend should be closed")
	}
}

func TestNewUnsupported(t *testing.T) {
	if _, err := New(config.OutputConfig{Type: "xml"}, testLogger); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNewFileBackends(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []string{"json", "jsonl", "csv", "markdown", "sqlite"} {
		s, err := New(config.OutputConfig{Type: typ, Path: filepath.Join(dir, "out."+typ)}, testLogger)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if s.Name() != typ {
			t.Errorf("expected backend %s, got %s", typ, s.Name())
		}
		s.Close()
	}
}

func TestStorageErrorWraps(t *testing.T) {
	// A directory where the file should be makes the write fail.
	dir := t.TempDir()
	s, err := NewJSONStorage(dir, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = s.Store(context.Background(), testResult())
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "json" {
		t.Errorf("expected StorageError from json backend, got %v", err)
	}
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "wordstalk.db")
	s, err := NewSQLiteStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	first := testResult()
	first.Failures = []engine.SeedFailure{{Seed: "https://x.example/", Error: "boom"}}
	if err := s.Store(ctx, first); err != nil {
		t.Fatalf("store: %v", err)
	}
	second := &engine.Result{
		WordCounts:  wordcount.Top(map[string]int{"zeta": 2, "eta": 2}, 5),
		URLsVisited: 7,
	}
	if err := s.Store(ctx, second); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.URLsVisited != 7 {
		t.Errorf("URLsVisited = %d, want 7", got.URLsVisited)
	}
	if words := strings.Join(got.WordCounts.Words(), ","); words != "zeta,eta" {
		t.Errorf("words = %s, want zeta,eta", words)
	}

	var crawls, failures int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crawls`).Scan(&crawls); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failures`).Scan(&failures); err != nil {
		t.Fatal(err)
	}
	if crawls != 2 || failures != 1 {
		t.Errorf("crawls = %d, failures = %d; want 2 and 1", crawls, failures)
	}
}

func TestSQLiteStorageReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordstalk.db")
	s, err := NewSQLiteStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Store(context.Background(), testResult()); err != nil {
		t.Fatalf("store: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStorage(path, testLogger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if words := strings.Join(got.WordCounts.Words(), ","); words != "c,bb,a" {
		t.Errorf("words = %s, want c,bb,a", words)
	}
}

func TestSQLiteStorageNeedsPath(t *testing.T) {
	if _, err := NewSQLiteStorage("-", testLogger); err == nil {
		t.Error("expected error for stdout path")
	}
}

func TestMarkdownStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	s, err := NewMarkdownStorage(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	res := testResult()
	res.Failures = []engine.SeedFailure{{Seed: "https://x.example/", Error: "boom"}}
	if err := s.Store(context.Background(), res); err != nil {
		t.Fatalf("store: %v", err)
	}
	s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"# Word Count Report",
		"2024-03-01 12:00:00 UTC",
		"## Popular Words",
		"`c`",
		"## Failed Seeds",
		"https://x.example/: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if c, a := strings.Index(out, "`c`"), strings.Index(out, "`a`"); c < 0 || a < c {
		t.Errorf("rows are not in rank order:\n%s", out)
	}
}
