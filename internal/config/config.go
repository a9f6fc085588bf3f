package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Crawler implementations selectable through crawl.implementation.
const (
	ImplementationParallel   = "parallel"
	ImplementationSequential = "sequential"
)

// Config is the root configuration for WordStalk.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Parser  ParserConfig  `mapstructure:"parser"  yaml:"parser"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CrawlConfig controls the crawl engine.
type CrawlConfig struct {
	StartPages       []string      `mapstructure:"start_pages"        yaml:"start_pages"`
	MaxDepth         int           `mapstructure:"max_depth"          yaml:"max_depth"`
	Timeout          time.Duration `mapstructure:"timeout"            yaml:"timeout"`
	PopularWordCount int           `mapstructure:"popular_word_count" yaml:"popular_word_count"`
	IgnoredURLs      []string      `mapstructure:"ignored_urls"       yaml:"ignored_urls"` // regexes, full match
	Parallelism      int           `mapstructure:"parallelism"        yaml:"parallelism"`  // <= 0 means all CPUs
	Implementation   string        `mapstructure:"implementation"     yaml:"implementation"`
	FailFast         bool          `mapstructure:"fail_fast"          yaml:"fail_fast"`
}

// ParserConfig controls page parsing and word normalization.
type ParserConfig struct {
	Site          string   `mapstructure:"site"            yaml:"site"`
	IgnoredWords  []string `mapstructure:"ignored_words"   yaml:"ignored_words"`
	MinWordLength int      `mapstructure:"min_word_length" yaml:"min_word_length"`
}

// OutputConfig controls where crawl results and profiling data are written.
type OutputConfig struct {
	Type        string      `mapstructure:"type"         yaml:"type"` // json, jsonl, csv, markdown, sqlite, mongodb, multi
	Path        string      `mapstructure:"path"         yaml:"path"` // empty or "-" writes to stdout
	ProfilePath string      `mapstructure:"profile_path" yaml:"profile_path"`
	Mongo       MongoConfig `mapstructure:"mongo"        yaml:"mongo"`
}

// MongoConfig controls the MongoDB result backend.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level"`
	Format     string `mapstructure:"format"      yaml:"format"`
	Output     string `mapstructure:"output"      yaml:"output"` // stderr, stdout or a file path
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// MetricsConfig controls the Prometheus-style metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			MaxDepth:         3,
			Timeout:          10 * time.Second,
			PopularWordCount: 10,
			Parallelism:      0,
			Implementation:   ImplementationParallel,
		},
		Parser: ParserConfig{
			MinWordLength: 1,
		},
		Output: OutputConfig{
			Type: "json",
			Path: "-",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "wordstalk",
				Collection: "crawl_results",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
