package sampler

import (
	"fmt"

	"github.com/hupe1980/rombasis/svd"
)

// Compile-time check that Static satisfies the Sampler interface.
var _ Sampler = (*Static)(nil)

// Static accepts every offered snapshot; the cadence is driven entirely by
// the caller.
type Static struct {
	engine svd.Engine
}

// NewStatic creates a pass-through sampler driving the given engine.
func NewStatic(engine svd.Engine) (*Static, error) {
	if engine == nil {
		return nil, fmt.Errorf("sampler: engine must not be nil")
	}
	return &Static{engine: engine}, nil
}

// IsNextSample always reports true: every offered snapshot is wanted.
func (s *Static) IsNextSample(float64) bool {
	return true
}

// TakeSample hands the snapshot to the underlying engine.
func (s *Static) TakeSample(u []float64, time float64) bool {
	return s.engine.TakeSample(u, time)
}

// ComputeNextSampleTime returns time: the next snapshot is wanted
// immediately.
func (s *Static) ComputeNextSampleTime(_, _ []float64, time float64) float64 {
	return time
}

// ResetDt is a no-op; the static sampler has no time step.
func (s *Static) ResetDt(float64) {}

// Engine returns the driven SVD engine.
func (s *Static) Engine() svd.Engine {
	return s.engine
}
