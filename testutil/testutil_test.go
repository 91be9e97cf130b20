package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(99).GaussianSamples(3, 8)
	b := NewRNG(99).GaussianSamples(3, 8)
	assert.Equal(t, a, b)

	r := NewRNG(99)
	first := r.Float64()
	r.Reset()
	assert.Equal(t, first, r.Float64())
	assert.Equal(t, int64(99), r.Seed())
}

func TestSubspaceBasis_Orthonormal(t *testing.T) {
	basis := NewRNG(1).SubspaceBasis(20, 4)

	var gram mat.Dense
	gram.Mul(basis.T(), basis)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-12)
		}
	}
}

func TestLowRankStream_StaysInSubspace(t *testing.T) {
	r := NewRNG(7)
	basis := r.SubspaceBasis(16, 3)
	samples := r.streamFromBasis(basis, 10, 0)
	require.Len(t, samples, 10)

	for _, s := range samples {
		assert.Less(t, ReconstructionError(basis, s), 1e-12)
	}
}

func TestNoisyLowRankStream_LeavesSubspace(t *testing.T) {
	samples := NewRNG(7).NoisyLowRankStream(5, 16, 3, 0.1)
	require.Len(t, samples, 5)
	for _, s := range samples {
		require.Len(t, s, 16)
	}
}

func TestUnitVector_Normalized(t *testing.T) {
	v := NewRNG(3).UnitVector(32)
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-12)
}
