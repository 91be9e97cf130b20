// Package testutil provides deterministic sample-stream generators for
// tests and benchmarks.
package testutil

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// NormFloat64 returns a standard normal pseudo-random number.
func (r *RNG) NormFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.NormFloat64()
}

// GaussianSamples generates num state vectors with standard normal
// entries, sharing a single backing array.
func (r *RNG) GaussianSamples(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	samples := make([][]float64, num)

	for i := 0; i < num; i++ {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}
		samples[i] = vec
	}

	return samples
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dim int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorLocked(dim)
}

func (r *RNG) unitVectorLocked(dim int) []float64 {
	vec := make([]float64, dim)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = v
		norm += v * v
	}
	if norm == 0 {
		norm = 1
	}
	inv := 1.0 / math.Sqrt(norm)
	for j := range vec {
		vec[j] *= inv
	}
	return vec
}

// SubspaceBasis generates a dim x rank matrix with orthonormal columns,
// obtained from the thin SVD of a Gaussian matrix.
func (r *RNG) SubspaceBasis(dim, rank int) *mat.Dense {
	r.mu.Lock()
	raw := mat.NewDense(dim, rank, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < rank; j++ {
			raw.Set(i, j, r.rand.NormFloat64())
		}
	}
	r.mu.Unlock()

	var svd mat.SVD
	if !svd.Factorize(raw, mat.SVDThin) {
		panic("testutil: SVD of Gaussian matrix failed")
	}
	var u mat.Dense
	svd.UTo(&u)
	return &u
}

// LowRankStream generates num samples confined to a rank-dimensional
// subspace of dim-dimensional space. Streams like this exercise the
// linear-dependence branch of incremental SVD: at most rank samples are
// novel, the rest are dependent.
func (r *RNG) LowRankStream(num, dim, rank int) [][]float64 {
	basis := r.SubspaceBasis(dim, rank)
	return r.streamFromBasis(basis, num, 0)
}

// NoisyLowRankStream is LowRankStream with additive Gaussian noise of the
// given magnitude, which keeps every sample barely novel.
func (r *RNG) NoisyLowRankStream(num, dim, rank int, noise float64) [][]float64 {
	basis := r.SubspaceBasis(dim, rank)
	return r.streamFromBasis(basis, num, noise)
}

func (r *RNG) streamFromBasis(basis *mat.Dense, num int, noise float64) [][]float64 {
	dim, rank := basis.Dims()

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	samples := make([][]float64, num)

	coeffs := mat.NewVecDense(rank, nil)
	out := mat.NewVecDense(dim, nil)

	for i := 0; i < num; i++ {
		for j := 0; j < rank; j++ {
			coeffs.SetVec(j, r.rand.NormFloat64())
		}
		out.MulVec(basis, coeffs)

		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = out.AtVec(j)
			if noise > 0 {
				vec[j] += r.rand.NormFloat64() * noise
			}
		}
		samples[i] = vec
	}

	return samples
}

// ReconstructionError returns the max-norm distance between a sample and
// its projection onto the basis, relative to the sample's own max norm.
func ReconstructionError(basis *mat.Dense, sample []float64) float64 {
	dim, _ := basis.Dims()
	u := mat.NewVecDense(dim, sample)

	var proj, coeffs mat.VecDense
	coeffs.MulVec(basis.T(), u)
	proj.MulVec(basis, &coeffs)

	var residual mat.VecDense
	residual.SubVec(u, &proj)

	num := mat.Norm(&residual, math.Inf(1))
	den := mat.Norm(u, math.Inf(1))
	if den == 0 {
		return num
	}
	return num / den
}
