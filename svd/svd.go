package svd

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Engine is the common interface of the streaming SVD algorithms.
//
// TakeSample folds one snapshot into the factorization of the current time
// interval, opening a new interval first when the previous one is full. The
// remaining methods are read-only and may be called at any point after the
// first successful sample.
type Engine interface {
	// TakeSample collects the new sample u at the supplied simulation time.
	// It returns false if the sample was rejected (zero norm).
	TakeSample(u []float64, time float64) bool

	// Basis returns the basis vectors for the current time interval as a
	// dim x rank matrix. The returned matrix is read-only.
	Basis() *mat.Dense

	// SingularValues returns the singular values for the current time
	// interval as a rank x rank diagonal matrix. Read-only.
	SingularValues() *mat.Dense

	// Dim returns the row dimension of the state space on this process.
	Dim() int

	// NumSamples returns the number of samples folded into the current
	// time interval.
	NumSamples() int

	// NumBasisTimeIntervals returns the number of time intervals on which
	// different sets of basis vectors are defined.
	NumBasisTimeIntervals() int

	// BasisIntervalStartTime returns the start time of the requested
	// interval. which must be in [0, NumBasisTimeIntervals()).
	BasisIntervalStartTime(which int) float64

	// IntervalBasis returns the frozen basis and singular values of the
	// requested interval. For the newest interval it returns the live
	// factorization. Both matrices are read-only.
	IntervalBasis(which int) (basis, singularValues *mat.Dense)

	// IsNewTimeInterval reports whether the next sample will start a new
	// time interval.
	IsNewTimeInterval() bool
}

// Options contains configuration options shared by the SVD engines.
type Options struct {
	// Dimension is the row count of the state space on this process.
	// Must be > 0.
	Dimension int

	// LinearityTol decides whether a sample adds a new basis direction:
	// a sample is novel iff the norm of its component orthogonal to the
	// current basis strictly exceeds LinearityTol. Ties are dependent.
	// Must be > 0. Ignored by the static engine.
	LinearityTol float64

	// SkipLinearlyDependent controls the dependent branch. When false the
	// basis is extended for every sample, even numerically redundant ones.
	// Ignored by the static engine.
	SkipLinearlyDependent bool

	// SamplesPerInterval is the maximum number of samples collected in one
	// time interval. Must be > 0.
	SamplesPerInterval int

	// DebugAlgorithm enables per-sample debug logging. No semantic effect.
	DebugAlgorithm bool

	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the engines.
var DefaultOptions = Options{
	Dimension:             0,
	LinearityTol:          1e-7,
	SkipLinearlyDependent: true,
	SamplesPerInterval:    100,
}

func (o *Options) validate(needTol bool) error {
	if o.Dimension <= 0 {
		return &ErrInvalidDimension{Dimension: o.Dimension}
	}
	if needTol && o.LinearityTol <= 0 {
		return &ErrInvalidTolerance{Tolerance: o.LinearityTol}
	}
	if o.SamplesPerInterval <= 0 {
		return &ErrInvalidSamplesPerInterval{SamplesPerInterval: o.SamplesPerInterval}
	}
	return nil
}

// closedInterval is the frozen factorization of a completed time interval.
type closedInterval struct {
	basis          *mat.Dense
	singularValues *mat.Dense
}

// state carries the bookkeeping shared by both engines: the live
// factorization of the current interval plus the append-only history of
// closed intervals.
type state struct {
	dim                int
	numSamples         int // samples folded into the current interval
	samplesPerInterval int

	basis          *mat.Dense // current U, dim x rank
	singularValues *mat.Dense // current S, rank x rank diagonal

	startTimes []float64 // one entry per interval, index 0 is the first
	history    []closedInterval

	debug  bool
	logger *slog.Logger
}

func newState(opts Options) state {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return state{
		dim:                opts.Dimension,
		samplesPerInterval: opts.SamplesPerInterval,
		debug:              opts.DebugAlgorithm,
		logger:             logger,
	}
}

// checkSample panics on caller-bug preconditions. Malformed input is not a
// recoverable runtime condition.
func (s *state) checkSample(u []float64, time float64) {
	if u == nil {
		panic("svd: nil sample")
	}
	if len(u) != s.dim {
		panic(fmt.Sprintf("svd: %v", &ErrDimensionMismatch{Expected: s.dim, Actual: len(u)}))
	}
	if time < 0 {
		panic(fmt.Sprintf("svd: negative sample time %g", time))
	}
}

func (s *state) Dim() int { return s.dim }

// NumSamples returns the number of samples folded into the current interval.
func (s *state) NumSamples() int { return s.numSamples }

func (s *state) NumBasisTimeIntervals() int { return len(s.startTimes) }

func (s *state) BasisIntervalStartTime(which int) float64 {
	if which < 0 || which >= len(s.startTimes) {
		panic(fmt.Sprintf("svd: interval index %d out of range [0,%d)", which, len(s.startTimes)))
	}
	return s.startTimes[which]
}

func (s *state) IsNewTimeInterval() bool {
	return s.numSamples == 0 || s.numSamples >= s.samplesPerInterval
}

// freezeInterval moves the live factorization into the read-only history.
// The live matrices are replaced wholesale on every update, so keeping the
// references is safe.
func (s *state) freezeInterval() {
	if s.basis == nil {
		return
	}
	s.history = append(s.history, closedInterval{
		basis:          s.basis,
		singularValues: s.singularValues,
	})
}

func (s *state) intervalBasis(which int, liveBasis, liveSingular *mat.Dense) (*mat.Dense, *mat.Dense) {
	if which < 0 || which >= len(s.startTimes) {
		panic(fmt.Sprintf("svd: interval index %d out of range [0,%d)", which, len(s.startTimes)))
	}
	if which < len(s.history) {
		iv := s.history[which]
		return iv.basis, iv.singularValues
	}
	return liveBasis, liveSingular
}

// diagFromValues builds a square diagonal matrix from singular values.
func diagFromValues(values []float64) *mat.Dense {
	n := len(values)
	d := mat.NewDense(n, n, nil)
	for i, v := range values {
		d.Set(i, i, v)
	}
	return d
}

// vecNorm is the Euclidean norm of a raw sample.
func vecNorm(u []float64) float64 {
	return mat.Norm(mat.NewVecDense(len(u), u), 2)
}
