package sampler

import (
	"github.com/hupe1980/rombasis/svd"
)

// Sampler drives an SVD engine and owns the sampling-cadence policy.
type Sampler interface {
	// IsNextSample reports whether a sample should be taken at time.
	IsNextSample(time float64) bool

	// TakeSample hands the snapshot to the underlying engine.
	// It returns false if the engine rejected the sample.
	TakeSample(u []float64, time float64) bool

	// ComputeNextSampleTime computes the next time a snapshot is needed,
	// given the state u and its right hand side rhs at the supplied time.
	ComputeNextSampleTime(u, rhs []float64, time float64) float64

	// ResetDt overrides the current sampling time step.
	ResetDt(dt float64)

	// Engine returns the driven SVD engine.
	Engine() svd.Engine
}
