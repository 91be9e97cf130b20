package sampler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/rombasis/svd"
)

// Compile-time check that Incremental satisfies the Sampler interface.
var _ Sampler = (*Incremental)(nil)

// Options contains configuration options for the incremental sampler.
type Options struct {
	// InitialDt seeds the adaptive sampling time step. Must be > 0.
	InitialDt float64

	// SamplingTol is the target size of the unresolved state component that
	// the time step adaptation steers towards. Must be > 0.
	SamplingTol float64

	// MaxTimeBetweenSamples caps the sampling time step. Must be > 0.
	MaxTimeBetweenSamples float64

	// MinSamplingTimeStepScale and MaxSamplingTimeStepScale clamp the
	// per-step scale factor; SamplingTimeStepScale multiplies it.
	// All must be >= 0 and min <= max.
	MinSamplingTimeStepScale float64
	SamplingTimeStepScale    float64
	MaxSamplingTimeStepScale float64
}

// DefaultOptions contains the default configuration options for the sampler.
var DefaultOptions = Options{
	InitialDt:                1e-2,
	SamplingTol:              1e-2,
	MaxTimeBetweenSamples:    math.MaxFloat64,
	MinSamplingTimeStepScale: 0.1,
	SamplingTimeStepScale:    0.8,
	MaxSamplingTimeStepScale: 5.0,
}

func (o *Options) validate() error {
	switch {
	case o.InitialDt <= 0:
		return fmt.Errorf("sampler: initial dt must be positive, got %g", o.InitialDt)
	case o.SamplingTol <= 0:
		return fmt.Errorf("sampler: sampling tolerance must be positive, got %g", o.SamplingTol)
	case o.MaxTimeBetweenSamples <= 0:
		return fmt.Errorf("sampler: max time between samples must be positive, got %g", o.MaxTimeBetweenSamples)
	case o.MinSamplingTimeStepScale < 0 || o.SamplingTimeStepScale < 0 || o.MaxSamplingTimeStepScale < 0:
		return fmt.Errorf("sampler: time step scales must be non-negative")
	case o.MinSamplingTimeStepScale > o.MaxSamplingTimeStepScale:
		return fmt.Errorf("sampler: min time step scale %g exceeds max %g",
			o.MinSamplingTimeStepScale, o.MaxSamplingTimeStepScale)
	}
	return nil
}

// Incremental adapts the sampling cadence to the error indicator
// eta + dt*etaDot, the part of the state and its derivative that the current
// basis does not resolve.
type Incremental struct {
	engine svd.Engine
	opts   Options

	dt             float64
	nextSampleTime float64
}

// NewIncremental creates an adaptive sampler driving the given engine.
func NewIncremental(engine svd.Engine, optFns ...func(o *Options)) (*Incremental, error) {
	if engine == nil {
		return nil, fmt.Errorf("sampler: engine must not be nil")
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Incremental{
		engine: engine,
		opts:   opts,
		dt:     opts.InitialDt,
	}, nil
}

// IsNextSample reports whether a sample should be taken at time.
func (s *Incremental) IsNextSample(time float64) bool {
	return time >= s.nextSampleTime
}

// TakeSample hands the snapshot to the underlying engine.
func (s *Incremental) TakeSample(u []float64, time float64) bool {
	return s.engine.TakeSample(u, time)
}

// ComputeNextSampleTime scales the sampling time step by how well the current
// basis resolves the state: the further eta + dt*etaDot is from the sampling
// tolerance, the stronger the correction, clamped by the configured scales.
func (s *Incremental) ComputeNextSampleTime(u, rhs []float64, time float64) float64 {
	if u == nil || rhs == nil {
		panic("sampler: nil state or right hand side")
	}
	if time < 0 {
		panic(fmt.Sprintf("sampler: negative time %g", time))
	}

	dim := s.engine.Dim()
	uVec := mat.NewVecDense(dim, u)
	if mat.Norm(uVec, 2) == 0 {
		return s.nextSampleTime
	}

	basis := s.engine.Basis()
	eta := unresolved(basis, uVec)
	etaDot := unresolved(basis, mat.NewVecDense(dim, rhs))

	// l-inf norm of eta + dt*etaDot.
	var norm float64
	for i := 0; i < dim; i++ {
		if v := math.Abs(eta.AtVec(i) + s.dt*etaDot.AtVec(i)); v > norm {
			norm = v
		}
	}

	scale := s.opts.SamplingTimeStepScale * math.Sqrt(s.opts.SamplingTol/norm)
	switch {
	case scale < s.opts.MinSamplingTimeStepScale:
		s.dt *= s.opts.MinSamplingTimeStepScale
	case scale > s.opts.MaxSamplingTimeStepScale:
		s.dt *= s.opts.MaxSamplingTimeStepScale
	default:
		s.dt *= scale
	}
	if s.dt < 0 {
		s.dt = 0
	} else if s.dt > s.opts.MaxTimeBetweenSamples {
		s.dt = s.opts.MaxTimeBetweenSamples
	}

	s.nextSampleTime = time + s.dt
	return s.nextSampleTime
}

// ResetDt overrides the current sampling time step.
func (s *Incremental) ResetDt(dt float64) {
	s.dt = dt
}

// Dt returns the current sampling time step.
func (s *Incremental) Dt() float64 {
	return s.dt
}

// Engine returns the driven SVD engine.
func (s *Incremental) Engine() svd.Engine {
	return s.engine
}

// unresolved returns v minus its projection onto the basis.
func unresolved(basis *mat.Dense, v *mat.VecDense) *mat.VecDense {
	_, rank := basis.Dims()
	coeff := mat.NewVecDense(rank, nil)
	coeff.MulVec(basis.T(), v)

	var proj mat.VecDense
	proj.MulVec(basis, coeff)

	out := mat.NewVecDense(v.Len(), nil)
	out.SubVec(v, &proj)
	return out
}
