package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/timing"
)

// FileError records why one file could not be processed by one algorithm.
// Algorithm is empty for directory listing failures.
type FileError struct {
	Path      string
	Algorithm algorithms.ID
	Err       error
}

func (e FileError) Error() string {
	if e.Algorithm == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Path, e.Algorithm, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Report summarises one batch. Counts are per file and algorithm.
type Report struct {
	mu        sync.Mutex
	Written   int
	Skipped   int
	Failed    int
	Failures  []FileError
	Durations []timing.Stat
}

func (r *Report) written() {
	r.mu.Lock()
	r.Written++
	r.mu.Unlock()
}

func (r *Report) skipped() {
	r.mu.Lock()
	r.Skipped++
	r.mu.Unlock()
}

func (r *Report) fail(path string, id algorithms.ID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Failures = append(r.Failures, FileError{Path: path, Algorithm: id, Err: err})
}

// Err joins every recorded failure, or returns nil for a clean batch.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Failures) == 0 {
		return nil
	}
	all := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		all[i] = f
	}
	return errors.Join(all...)
}
