package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rombasis/svd"
)

func newEngine(t *testing.T, dim int) *svd.Incremental {
	t.Helper()
	e, err := svd.NewIncremental(func(o *svd.Options) {
		o.Dimension = dim
		o.LinearityTol = 1e-6
	})
	require.NoError(t, err)
	return e
}

func TestIncremental_IsNextSample(t *testing.T) {
	s, err := NewIncremental(newEngine(t, 2))
	require.NoError(t, err)

	// The first sample is always due.
	require.True(t, s.IsNextSample(0))
	require.True(t, s.IsNextSample(10))
}

func TestIncremental_DtShrinksForUnresolvedState(t *testing.T) {
	e := newEngine(t, 3)
	s, err := NewIncremental(e, func(o *Options) {
		o.InitialDt = 1.0
		o.SamplingTol = 1e-4
		o.MinSamplingTimeStepScale = 0.0
		o.SamplingTimeStepScale = 1.0
		o.MaxSamplingTimeStepScale = 10.0
	})
	require.NoError(t, err)

	require.True(t, s.TakeSample([]float64{1, 0, 0}, 0))

	// The state has a large component outside the basis: dt must shrink.
	next := s.ComputeNextSampleTime([]float64{1, 1, 0}, []float64{0, 0, 0}, 0)
	require.Less(t, s.Dt(), 1.0)
	require.Equal(t, s.Dt(), next)
	require.True(t, s.IsNextSample(next))
	require.False(t, s.IsNextSample(next/2))
}

func TestIncremental_DtGrowsForResolvedState(t *testing.T) {
	e := newEngine(t, 3)
	s, err := NewIncremental(e, func(o *Options) {
		o.InitialDt = 1.0
		o.SamplingTol = 1e-2
		o.MinSamplingTimeStepScale = 0.0
		o.SamplingTimeStepScale = 1.0
		o.MaxSamplingTimeStepScale = 2.0
	})
	require.NoError(t, err)

	require.True(t, s.TakeSample([]float64{1, 0, 0}, 0))

	// The state is fully resolved by the basis: the scale factor saturates
	// at the configured maximum.
	next := s.ComputeNextSampleTime([]float64{2, 0, 0}, []float64{1, 0, 0}, 1)
	require.InDelta(t, 2.0, s.Dt(), 1e-12)
	require.InDelta(t, 3.0, next, 1e-12)
}

func TestIncremental_DtClampedToMaxTimeBetweenSamples(t *testing.T) {
	e := newEngine(t, 2)
	s, err := NewIncremental(e, func(o *Options) {
		o.InitialDt = 1.0
		o.SamplingTol = 1e-2
		o.MaxTimeBetweenSamples = 1.5
		o.MinSamplingTimeStepScale = 0.0
		o.SamplingTimeStepScale = 1.0
		o.MaxSamplingTimeStepScale = 100.0
	})
	require.NoError(t, err)

	require.True(t, s.TakeSample([]float64{1, 0}, 0))

	s.ComputeNextSampleTime([]float64{1, 0}, []float64{0, 0}, 0)
	require.InDelta(t, 1.5, s.Dt(), 1e-12)
}

func TestIncremental_ZeroStateKeepsSchedule(t *testing.T) {
	e := newEngine(t, 2)
	s, err := NewIncremental(e, func(o *Options) { o.InitialDt = 1.0 })
	require.NoError(t, err)

	require.True(t, s.TakeSample([]float64{1, 0}, 0))
	next := s.ComputeNextSampleTime([]float64{1, 1}, []float64{0, 0}, 0)
	require.Equal(t, next, s.ComputeNextSampleTime([]float64{0, 0}, []float64{1, 1}, 5))
}

func TestIncremental_ResetDt(t *testing.T) {
	s, err := NewIncremental(newEngine(t, 2))
	require.NoError(t, err)

	s.ResetDt(0.25)
	require.Equal(t, 0.25, s.Dt())
}

func TestIncremental_OptionValidation(t *testing.T) {
	e := newEngine(t, 2)

	_, err := NewIncremental(nil)
	require.Error(t, err)

	_, err = NewIncremental(e, func(o *Options) { o.InitialDt = 0 })
	require.Error(t, err)

	_, err = NewIncremental(e, func(o *Options) { o.SamplingTol = -1 })
	require.Error(t, err)

	_, err = NewIncremental(e, func(o *Options) {
		o.MinSamplingTimeStepScale = 2
		o.MaxSamplingTimeStepScale = 1
	})
	require.Error(t, err)
}

func TestStatic_AlwaysSamples(t *testing.T) {
	e := newEngine(t, 2)
	s, err := NewStatic(e)
	require.NoError(t, err)

	require.True(t, s.IsNextSample(0))
	require.True(t, s.IsNextSample(math.MaxFloat64))
	require.Equal(t, 3.0, s.ComputeNextSampleTime(nil, nil, 3))
	require.True(t, s.TakeSample([]float64{1, 0}, 0))
	require.Same(t, svd.Engine(e), s.Engine())
}
