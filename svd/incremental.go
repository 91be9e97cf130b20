package svd

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"
)

// machEps is the double precision machine epsilon. Singular values at or
// below machEps relative to the largest one indicate a rank-deficient basis.
const machEps = 2.220446049250313e-16

// Compile-time check that Incremental satisfies the Engine interface.
var _ Engine = (*Incremental)(nil)

// Incremental maintains the factorization of a sample stream using Brand's
// fast update method. Instead of the right singular vectors it carries an
// auxiliary coordinate matrix with one row per accepted sample; every update
// reduces to one small SVD of size at most (rank+1) x (rank+1).
type Incremental struct {
	state

	linearityTol          float64
	skipLinearlyDependent bool

	// up holds the coordinates of every sample of the current interval
	// against the current basis, one row per sample. Never distributed:
	// identical on every participating process.
	up *mat.Dense

	// dependent tracks which samples of the current interval were folded in
	// as linearly dependent.
	dependent *roaring.Bitmap
}

// NewIncremental creates a fast-update incremental SVD engine.
func NewIncremental(optFns ...func(o *Options)) (*Incremental, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(true); err != nil {
		return nil, err
	}

	return &Incremental{
		state:                 newState(opts),
		linearityTol:          opts.LinearityTol,
		skipLinearlyDependent: opts.SkipLinearlyDependent,
		dependent:             roaring.New(),
	}, nil
}

// TakeSample collects the new sample u at the supplied simulation time.
// It returns false if the sample has zero norm and was rejected.
func (e *Incremental) TakeSample(u []float64, time float64) bool {
	e.checkSample(u, time)

	if vecNorm(u) == 0 {
		return false
	}

	if e.IsNewTimeInterval() {
		e.freezeInterval()
		e.buildInitialSVD(u, time)
	} else {
		e.addSample(u)
	}
	return true
}

// buildInitialSVD starts a new time interval with a rank-1 factorization.
// The first coordinate row is the scalar 1, so U*S*Up' reproduces the sample
// exactly.
func (e *Incremental) buildInitialSVD(u []float64, time float64) {
	norm := vecNorm(u)

	basis := mat.NewDense(e.dim, 1, nil)
	for i, v := range u {
		basis.Set(i, 0, v/norm)
	}

	e.basis = basis
	e.singularValues = diagFromValues([]float64{norm})
	e.up = mat.NewDense(1, 1, []float64{1})
	e.numSamples = 1
	e.dependent = roaring.New()
	e.startTimes = append(e.startTimes, time)

	if e.debug {
		e.logger.Debug("new time interval",
			"interval", len(e.startTimes)-1,
			"start_time", time,
			"norm", norm,
		)
	}
}

// addSample runs the per-sample update protocol: project, measure the
// residual, branch on linear dependence.
func (e *Incremental) addSample(u []float64) {
	rank := e.rank()
	uVec := mat.NewVecDense(e.dim, u)

	// p = U' * u
	p := mat.NewVecDense(rank, nil)
	p.MulVec(e.basis.T(), uVec)

	// residual = u - U*p
	var proj mat.VecDense
	proj.MulVec(e.basis, p)
	var residual mat.VecDense
	residual.SubVec(uVec, &proj)
	k := mat.Norm(&residual, 2)

	// Novel iff the residual strictly exceeds the tolerance; ties are
	// dependent. SkipLinearlyDependent=false forces the novel branch.
	novel := !e.skipLinearlyDependent || k > e.linearityTol

	if e.debug {
		e.logger.Debug("sample update",
			"sample", e.numSamples,
			"rank", rank,
			"residual", k,
			"novel", novel,
		)
	}

	if novel {
		e.addNewSample(p, &residual, k)
	} else {
		e.addLinearlyDependentSample(p)
	}
	e.numSamples++
}

// rank is the current number of retained basis directions.
func (e *Incremental) rank() int {
	_, c := e.basis.Dims()
	return c
}

// addNewSample extends the basis by the normalized residual direction and
// rotates the factorization by the small SVD of the augmented matrix
//
//	Q = | S  p |
//	    | 0  k |
//
// U picks up the left rotation, the coordinate matrix the right one.
func (e *Incremental) addNewSample(p *mat.VecDense, residual *mat.VecDense, k float64) {
	rank := e.rank()
	n := e.numSamples

	q := mat.NewDense(rank+1, rank+1, nil)
	for i := 0; i < rank; i++ {
		q.Set(i, i, e.singularValues.At(i, i))
		q.Set(i, rank, p.AtVec(i))
	}
	q.Set(rank, rank, k)

	var fac mat.SVD
	if !fac.Factorize(q, mat.SVDFull) {
		panic("svd: small SVD failed to converge")
	}
	values := fac.Values(nil)
	var a, b mat.Dense
	fac.UTo(&a)
	fac.VTo(&b)
	e.checkConditioning(values)

	// U_new = [U | residual/k] * A. A zero residual (forced append of an
	// exact duplicate) contributes a zero column; the basis is then
	// numerically rank deficient, which checkConditioning reports.
	ext := mat.NewDense(e.dim, rank+1, nil)
	ext.Slice(0, e.dim, 0, rank).(*mat.Dense).Copy(e.basis)
	if k > 0 {
		for i := 0; i < e.dim; i++ {
			ext.Set(i, rank, residual.AtVec(i)/k)
		}
	} else {
		e.logger.Warn("zero residual appended as new basis direction",
			"sample", n,
			"rank", rank,
		)
	}
	newBasis := mat.NewDense(e.dim, rank+1, nil)
	newBasis.Mul(ext, &a)

	// Up_new = | Up 0 | * B
	//          | 0  1 |
	upExt := mat.NewDense(n+1, rank+1, nil)
	upExt.Slice(0, n, 0, rank).(*mat.Dense).Copy(e.up)
	upExt.Set(n, rank, 1)
	newUp := mat.NewDense(n+1, rank+1, nil)
	newUp.Mul(upExt, &b)

	e.basis = newBasis
	e.singularValues = diagFromValues(values)
	e.up = newUp
}

// addLinearlyDependentSample folds the sample in without growing the basis,
// using the small SVD of the rank x (rank+1) augmented matrix [S | p].
// U is rotated in place; the coordinate matrix gains one row.
func (e *Incremental) addLinearlyDependentSample(p *mat.VecDense) {
	rank := e.rank()
	n := e.numSamples

	q := mat.NewDense(rank, rank+1, nil)
	for i := 0; i < rank; i++ {
		q.Set(i, i, e.singularValues.At(i, i))
		q.Set(i, rank, p.AtVec(i))
	}

	var fac mat.SVD
	if !fac.Factorize(q, mat.SVDFull) {
		panic("svd: small SVD failed to converge")
	}
	values := fac.Values(nil) // len == rank
	var a, b mat.Dense
	fac.UTo(&a) // rank x rank
	fac.VTo(&b) // (rank+1) x (rank+1); only the first rank columns are used
	e.checkConditioning(values)

	newBasis := mat.NewDense(e.dim, rank, nil)
	newBasis.Mul(e.basis, &a)

	upExt := mat.NewDense(n+1, rank+1, nil)
	upExt.Slice(0, n, 0, rank).(*mat.Dense).Copy(e.up)
	upExt.Set(n, rank, 1)
	newUp := mat.NewDense(n+1, rank, nil)
	newUp.Mul(upExt, b.Slice(0, rank+1, 0, rank))

	e.basis = newBasis
	e.singularValues = diagFromValues(values)
	e.up = newUp
	e.dependent.Add(uint32(n))
}

// checkConditioning surfaces a diagnostic when the smallest retained singular
// value approaches machine epsilon. Not a hard failure.
func (e *Incremental) checkConditioning(values []float64) {
	if len(values) == 0 {
		return
	}
	smallest := values[len(values)-1]
	if smallest <= machEps*values[0] {
		e.logger.Warn("reduced basis is becoming rank deficient",
			"smallest_singular_value", smallest,
			"largest_singular_value", values[0],
		)
	}
}

// Basis returns the basis vectors for the current time interval.
func (e *Incremental) Basis() *mat.Dense {
	if e.basis == nil {
		panic("svd: " + ErrNoSamples.Error())
	}
	return e.basis
}

// SingularValues returns the singular values for the current time interval
// as a diagonal matrix.
func (e *Incremental) SingularValues() *mat.Dense {
	if e.singularValues == nil {
		panic("svd: " + ErrNoSamples.Error())
	}
	return e.singularValues
}

// IntervalBasis returns the frozen factorization of the requested interval.
func (e *Incremental) IntervalBasis(which int) (*mat.Dense, *mat.Dense) {
	return e.intervalBasis(which, e.basis, e.singularValues)
}

// Rank returns the current number of retained basis directions.
func (e *Incremental) Rank() int {
	if e.basis == nil {
		return 0
	}
	return e.rank()
}

// SampleCoordinates returns the auxiliary coordinate matrix of the current
// interval: one row per accepted sample, rank columns. U*S*(row i)' is the
// fast-update reconstruction of sample i. Read-only.
func (e *Incremental) SampleCoordinates() *mat.Dense {
	if e.up == nil {
		panic("svd: " + ErrNoSamples.Error())
	}
	return e.up
}

// NumLinearlyDependent returns how many samples of the current interval were
// folded in as linearly dependent.
func (e *Incremental) NumLinearlyDependent() int {
	return int(e.dependent.GetCardinality())
}

// IsLinearlyDependent reports whether sample i of the current interval was
// folded in as linearly dependent.
func (e *Incremental) IsLinearlyDependent(i int) bool {
	return i >= 0 && e.dependent.Contains(uint32(i))
}

// Restore reinstates a previously saved factorization as the live interval of
// a fresh engine. Which samples were linearly dependent is not recoverable
// from the saved matrices, so the dependent set starts out empty.
func (e *Incremental) Restore(basis *mat.Dense, singularValues []float64, sampleCoords *mat.Dense, startTime float64, numSamples int) error {
	if e.basis != nil || len(e.startTimes) > 0 {
		return ErrAlreadySampled
	}
	if basis == nil || sampleCoords == nil {
		return fmt.Errorf("restore requires a basis and sample coordinates")
	}

	dim, rank := basis.Dims()
	if dim != e.dim {
		return &ErrDimensionMismatch{Expected: e.dim, Actual: dim}
	}
	if len(singularValues) != rank {
		return fmt.Errorf("restore got %d singular values for rank %d", len(singularValues), rank)
	}
	if numSamples < 1 {
		return fmt.Errorf("restore requires at least one sample, got %d", numSamples)
	}
	if rows, cols := sampleCoords.Dims(); rows != numSamples || cols != rank {
		return fmt.Errorf("restore sample coordinates are %dx%d, want %dx%d", rows, cols, numSamples, rank)
	}

	e.basis = mat.DenseCopyOf(basis)
	e.singularValues = diagFromValues(singularValues)
	e.up = mat.DenseCopyOf(sampleCoords)
	e.numSamples = numSamples
	e.dependent = roaring.New()
	e.startTimes = append(e.startTimes, startTime)
	return nil
}
