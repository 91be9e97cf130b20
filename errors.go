package rombasis

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/persistence"
	"github.com/hupe1980/rombasis/svd"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed
	// generator.
	ErrClosed = errors.New("generator is closed")

	// ErrNoBlobStore is returned when a persistence operation is attempted
	// on a generator without a configured blob store.
	ErrNoBlobStore = errors.New("no blob store configured")

	// ErrNoSavedState is returned by Restore when no restart state exists
	// under the configured basis name.
	ErrNoSavedState = errors.New("no saved state")
)

// ErrDimensionMismatch indicates a sample/dimension mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrCorruptSnapshot indicates a persisted snapshot that failed checksum or
// format validation.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrCorruptSnapshot struct {
	Name  string
	cause error
}

func (e *ErrCorruptSnapshot) Error() string {
	return fmt.Sprintf("corrupt snapshot %q: %v", e.Name, e.cause)
}

func (e *ErrCorruptSnapshot) Unwrap() error { return e.cause }

// translateError normalizes sub-package errors into the root error types so
// callers only have to match against one vocabulary.
func translateError(err error, name string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNoSavedState, err)
	}

	var dm *svd.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *svd.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	if persistence.IsChecksumMismatch(err) ||
		errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) ||
		errors.Is(err, persistence.ErrInvalidKind) {
		return &ErrCorruptSnapshot{Name: name, cause: err}
	}

	return err
}
