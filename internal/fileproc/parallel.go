// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/augur/pkg/models"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultThreshold is the corpus size at or below which files are processed sequentially.
const DefaultThreshold = 10

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Options controls scheduling.
type Options struct {
	// Workers bounds concurrency; <= 0 means DefaultWorkers().
	Workers int
	// Threshold is the largest corpus processed sequentially; < 0 means DefaultThreshold.
	Threshold int
	// OnProgress, when set, is called once per file whatever the outcome.
	OnProgress ProgressFunc
}

// DefaultWorkers returns NumCPU, or 4 when the CPU count is unavailable.
func DefaultWorkers() int {
	if n := runtime.NumCPU(); n >= 1 {
		return n
	}
	return 4
}

// Run calls fn for every file and collects the successful results in
// arbitrary order; callers sort. A panic inside fn is recovered and recorded
// as that file's error. Once ctx is cancelled, files not yet started record
// ctx.Err() instead of running.
func Run[T any](ctx context.Context, files []models.FileDescriptor, opts Options, fn func(context.Context, models.FileDescriptor) (T, error)) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	threshold := opts.Threshold
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	results := make([]T, 0, len(files))
	errs := &ProcessingErrors{}
	var mu sync.Mutex

	process := func(ctx context.Context, fd models.FileDescriptor) {
		if opts.OnProgress != nil {
			defer opts.OnProgress()
		}
		if err := ctx.Err(); err != nil {
			errs.Add(fd.RelPath, err)
			return
		}

		var (
			result T
			err    error
			pc     panics.Catcher
		)
		pc.Try(func() {
			result, err = fn(ctx, fd)
		})
		if r := pc.Recovered(); r != nil {
			errs.Add(fd.RelPath, r.AsError())
			return
		}
		if err != nil {
			errs.Add(fd.RelPath, err)
			return
		}

		mu.Lock()
		results = append(results, result)
		mu.Unlock()
	}

	if len(files) <= threshold || workers == 1 {
		for _, fd := range files {
			process(ctx, fd)
		}
	} else {
		p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
		for _, fd := range files {
			p.Go(func(ctx context.Context) error {
				process(ctx, fd)
				return nil // Don't stop pool on individual file errors
			})
		}
		_ = p.Wait() // Context errors are already captured in errs
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
