package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateCrawl(cfg.Crawl); err != nil {
		return err
	}

	if cfg.Parser.MinWordLength < 0 {
		return fmt.Errorf("parser.min_word_length must be >= 0, got %d", cfg.Parser.MinWordLength)
	}
	for _, p := range cfg.Parser.IgnoredWords {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("parser.ignored_words: invalid pattern %q: %w", p, err)
		}
	}

	validOutputTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "markdown": true,
		"sqlite": true, "mongodb": true, "multi": true,
	}
	if !validOutputTypes[cfg.Output.Type] {
		return fmt.Errorf("output.type %q is not supported (valid: json, jsonl, csv, markdown, sqlite, mongodb, multi)", cfg.Output.Type)
	}
	if cfg.Output.Type == "mongodb" || cfg.Output.Type == "multi" {
		if cfg.Output.Mongo.URI == "" {
			return fmt.Errorf("output.mongo.uri is required for output type %q", cfg.Output.Type)
		}
		if cfg.Output.Mongo.Database == "" || cfg.Output.Mongo.Collection == "" {
			return fmt.Errorf("output.mongo.database and output.mongo.collection are required")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output == "" {
		return fmt.Errorf("logging.output must not be empty")
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateCrawl checks the crawl section on its own. Engines call it on construction.
func ValidateCrawl(c CrawlConfig) error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("crawl.timeout must be >= 0, got %s", c.Timeout)
	}
	if c.PopularWordCount < 0 {
		return fmt.Errorf("crawl.popular_word_count must be >= 0, got %d", c.PopularWordCount)
	}
	if c.Parallelism > 10_000 {
		return fmt.Errorf("crawl.parallelism must be <= 10000, got %d", c.Parallelism)
	}
	switch c.Implementation {
	case "", ImplementationParallel, ImplementationSequential:
	default:
		return fmt.Errorf("crawl.implementation must be 'parallel' or 'sequential', got %q", c.Implementation)
	}
	return nil
}

// ValidateURL checks that a start page is an absolute URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("URL must have a scheme")
	}
	if u.Host == "" && u.Opaque == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
