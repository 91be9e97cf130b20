package rombasis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/hupe1980/rombasis/svd"
)

// writeCatalog produces a two-interval catalog: interval 0 starts at t=0
// with rank 2, interval 1 starts at t=10 with rank 1.
func writeCatalog(t *testing.T, store blobstore.BlobStore) {
	t.Helper()
	ctx := context.Background()

	gen, err := New(3,
		WithBlobStore(store),
		WithSVDOptions(func(o *svd.Options) {
			o.SamplesPerInterval = 2
		}),
	)
	require.NoError(t, err)

	_, err = gen.TakeSample(ctx, unitVec(3, 0, 1), 0, 1)
	require.NoError(t, err)
	_, err = gen.TakeSample(ctx, unitVec(3, 1, 1), 1, 1)
	require.NoError(t, err)
	_, err = gen.TakeSample(ctx, unitVec(3, 2, 5), 10, 1)
	require.NoError(t, err)
	require.NoError(t, gen.Close(ctx))
}

func TestReader_TimeIndexedLookup(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeCatalog(t, store)

	r, err := NewReader(ctx, store)
	require.NoError(t, err)

	require.Equal(t, 3, r.Dim())
	require.Equal(t, 2, r.NumBasisTimeIntervals())
	require.Equal(t, 0.0, r.BasisIntervalStartTime(0))
	require.Equal(t, 10.0, r.BasisIntervalStartTime(1))

	// Mid first interval.
	basis, err := r.Basis(ctx, 5)
	require.NoError(t, err)
	_, rank := basis.Dims()
	assert.Equal(t, 2, rank)

	// At and beyond the second interval's start.
	for _, tm := range []float64{10, 11, 1e6} {
		basis, err = r.Basis(ctx, tm)
		require.NoError(t, err)
		_, rank = basis.Dims()
		assert.Equal(t, 1, rank)

		sv, err := r.SingularValues(ctx, tm)
		require.NoError(t, err)
		require.Len(t, sv, 1)
		assert.InDelta(t, 5.0, sv[0], 1e-12)
	}

	// Times before the first interval fall back to it.
	basis, err = r.Basis(ctx, -1)
	require.NoError(t, err)
	_, rank = basis.Dims()
	assert.Equal(t, 2, rank)
}

func TestReader_IsNewBasisTracksLookups(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeCatalog(t, store)

	r, err := NewReader(ctx, store)
	require.NoError(t, err)

	assert.True(t, r.IsNewBasis(0), "nothing looked up yet")

	_, err = r.Basis(ctx, 0)
	require.NoError(t, err)
	assert.False(t, r.IsNewBasis(5), "same interval")
	assert.True(t, r.IsNewBasis(10), "next interval")

	_, err = r.Basis(ctx, 12)
	require.NoError(t, err)
	assert.False(t, r.IsNewBasis(99))
	assert.True(t, r.IsNewBasis(3))
}

func TestReader_EmptyCatalog(t *testing.T) {
	ctx := context.Background()

	_, err := NewReader(ctx, nil)
	require.ErrorIs(t, err, ErrNoBlobStore)

	_, err = NewReader(ctx, blobstore.NewMemoryStore())
	require.ErrorIs(t, err, ErrNoSavedState)
}
