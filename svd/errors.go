package svd

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSamples is returned when a basis is requested before any sample
	// has been taken.
	ErrNoSamples = errors.New("no samples taken")

	// ErrAlreadySampled is returned when a restore is attempted on an engine
	// that has already taken samples.
	ErrAlreadySampled = errors.New("engine has already taken samples")
)

// ErrInvalidDimension indicates a non-positive configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrInvalidTolerance indicates a non-positive linearity tolerance.
type ErrInvalidTolerance struct {
	Tolerance float64
}

func (e *ErrInvalidTolerance) Error() string {
	return fmt.Sprintf("invalid linearity tolerance: %g", e.Tolerance)
}

// ErrInvalidSamplesPerInterval indicates a non-positive interval size.
type ErrInvalidSamplesPerInterval struct {
	SamplesPerInterval int
}

func (e *ErrInvalidSamplesPerInterval) Error() string {
	return fmt.Sprintf("invalid samples per time interval: %d", e.SamplesPerInterval)
}

// ErrDimensionMismatch indicates a sample whose length does not match the
// configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
