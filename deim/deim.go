// Package deim implements the discrete empirical interpolation method.
//
// Given an orthonormal basis of a nonlinear term, DEIM greedily selects
// the rows at which the term should be sampled so that the full vector
// can be interpolated from those few entries. The companion operator
// returned alongside the row set maps sampled values back to basis
// coefficients.
package deim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Operator holds the result of a DEIM decomposition.
type Operator struct {
	// Rows are the selected sample row indices, in selection order.
	Rows []int
	// SampledInv is the inverse of the sampled basis rows. Interpolation
	// coefficients are SampledInv times the sampled values.
	SampledInv *mat.Dense
}

// Decompose runs DEIM on the given dim x rank basis. It returns the
// sampled rows and the inverted sampled-row matrix.
//
// Each step inverts only the leading minor built so far; the full
// inverse is taken once at the end.
func Decompose(basis *mat.Dense) (*Operator, error) {
	if basis == nil {
		return nil, fmt.Errorf("deim: nil basis")
	}
	dim, rank := basis.Dims()
	if rank == 0 {
		return nil, fmt.Errorf("deim: empty basis")
	}
	if rank > dim {
		return nil, fmt.Errorf("deim: rank %d exceeds dimension %d", rank, dim)
	}

	rows := make([]int, rank)
	sampled := mat.NewDense(rank, rank, nil)

	// The first sample row holds the largest entry of the first basis
	// vector.
	rows[0] = argmaxAbsCol(basis, 0, nil, 0)
	sampled.SetRow(0, mat.Row(nil, rows[0], basis))

	c := mat.NewVecDense(rank, nil)
	for i := 1; i < rank; i++ {
		// Solve M c = b where M is the i x i leading minor of the sampled
		// rows and b is their next column.
		m := sampled.Slice(0, i, 0, i)
		b := sampled.Slice(0, i, i, i+1).(*mat.Dense).ColView(0)

		ci := c.SliceVec(0, i).(*mat.VecDense)
		if err := ci.SolveVec(m, b); err != nil {
			return nil, fmt.Errorf("deim: sampled minor is singular at step %d: %w", i, err)
		}

		// The next row maximizes the residual between basis vector i and
		// its interpolation through the rows selected so far.
		rows[i] = argmaxAbsCol(basis, i, ci.RawVector().Data, i)
		sampled.SetRow(i, mat.Row(nil, rows[i], basis))
	}

	var inv mat.Dense
	if err := inv.Inverse(sampled); err != nil {
		return nil, fmt.Errorf("deim: sampled basis is singular: %w", err)
	}

	return &Operator{Rows: rows, SampledInv: &inv}, nil
}

// Interpolate reconstructs the basis coefficients from values sampled at
// the operator's rows. sampledValues must have length len(Rows).
func (op *Operator) Interpolate(sampledValues []float64) []float64 {
	if len(sampledValues) != len(op.Rows) {
		panic(fmt.Sprintf("deim: got %d sampled values for %d rows", len(sampledValues), len(op.Rows)))
	}
	v := mat.NewVecDense(len(sampledValues), sampledValues)
	out := mat.NewVecDense(len(op.Rows), nil)
	out.MulVec(op.SampledInv, v)
	return out.RawVector().Data
}

// Sample extracts the operator's rows from a full-dimension vector.
func (op *Operator) Sample(full []float64) []float64 {
	out := make([]float64, len(op.Rows))
	for i, r := range op.Rows {
		out[i] = full[r]
	}
	return out
}

// argmaxAbsCol returns the row maximizing |basis[row, col] - basis[row,
// 0:n] . c|. With n == 0 the correction term vanishes and it is a plain
// column argmax.
func argmaxAbsCol(basis *mat.Dense, col int, c []float64, n int) int {
	dim, _ := basis.Dims()
	best, bestVal := 0, -1.0
	for row := 0; row < dim; row++ {
		v := basis.At(row, col)
		for j := 0; j < n; j++ {
			v -= basis.At(row, j) * c[j]
		}
		if av := math.Abs(v); av > bestVal {
			bestVal = av
			best = row
		}
	}
	return best
}
