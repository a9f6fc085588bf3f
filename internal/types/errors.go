package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInterrupted    = errors.New("crawl interrupted before completion")
	ErrInvalidPattern = errors.New("invalid URL pattern")
	ErrPageNotFound   = errors.New("page not found in site snapshot")
	ErrNoStartPages   = errors.New("no start pages configured")
)

// ParseError wraps errors that occur while parsing a single page.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SeedError reports that the subtree rooted at a start page was aborted.
type SeedError struct {
	Seed string
	Err  error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("crawl of seed %s failed: %v", e.Seed, e.Err)
}

func (e *SeedError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during result storage.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
