package svd

import (
	"gonum.org/v1/gonum/mat"
)

// Compile-time check that Static satisfies the Engine interface.
var _ Engine = (*Static)(nil)

// Static collects the samples of a time interval and factors them in one
// batch SVD. The factorization is computed lazily when the basis is
// requested and cached until the next sample invalidates it.
type Static struct {
	state

	// samples holds the snapshots of the current interval, one per entry.
	samples [][]float64

	// current reports whether basis/singularValues reflect all samples.
	current bool
}

// NewStatic creates a batch SVD engine.
func NewStatic(optFns ...func(o *Options)) (*Static, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(false); err != nil {
		return nil, err
	}

	return &Static{state: newState(opts)}, nil
}

// TakeSample collects the new sample u at the supplied simulation time.
// It returns false if the sample has zero norm and was rejected.
func (e *Static) TakeSample(u []float64, time float64) bool {
	e.checkSample(u, time)

	if vecNorm(u) == 0 {
		return false
	}

	if e.IsNewTimeInterval() {
		if e.numSamples > 0 {
			e.factorize()
			e.freezeInterval()
		}
		e.samples = e.samples[:0]
		e.numSamples = 0
		e.startTimes = append(e.startTimes, time)
		if e.debug {
			e.logger.Debug("new time interval",
				"interval", len(e.startTimes)-1,
				"start_time", time,
			)
		}
	}

	sample := make([]float64, e.dim)
	copy(sample, u)
	e.samples = append(e.samples, sample)
	e.numSamples++
	e.current = false
	return true
}

// factorize computes the thin SVD of the snapshot matrix of the current
// interval. No-op when the cached factorization is still valid.
func (e *Static) factorize() {
	if e.current {
		return
	}

	n := len(e.samples)
	a := mat.NewDense(e.dim, n, nil)
	for j, sample := range e.samples {
		for i, v := range sample {
			a.Set(i, j, v)
		}
	}

	var fac mat.SVD
	if !fac.Factorize(a, mat.SVDThin) {
		panic("svd: batch SVD failed to converge")
	}
	var u mat.Dense
	fac.UTo(&u)

	e.basis = &u
	e.singularValues = diagFromValues(fac.Values(nil))
	e.current = true
}

// Basis returns the basis vectors for the current time interval.
func (e *Static) Basis() *mat.Dense {
	if e.numSamples == 0 {
		panic("svd: " + ErrNoSamples.Error())
	}
	e.factorize()
	return e.basis
}

// SingularValues returns the singular values for the current time interval
// as a diagonal matrix.
func (e *Static) SingularValues() *mat.Dense {
	if e.numSamples == 0 {
		panic("svd: " + ErrNoSamples.Error())
	}
	e.factorize()
	return e.singularValues
}

// IntervalBasis returns the frozen factorization of the requested interval.
func (e *Static) IntervalBasis(which int) (*mat.Dense, *mat.Dense) {
	if which == len(e.startTimes)-1 && e.numSamples > 0 {
		e.factorize()
	}
	return e.intervalBasis(which, e.basis, e.singularValues)
}
