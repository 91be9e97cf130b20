package persistence

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleSnapshot(withCoords bool) *Snapshot {
	basis := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		0, 0,
		0, 0,
	})
	snap := &Snapshot{
		Kind:           SnapshotKindBasis,
		StartTime:      1.25,
		NumSamples:     3,
		Basis:          basis,
		SingularValues: []float64{2.5, 0.5},
	}
	if withCoords {
		snap.SampleCoords = mat.NewDense(3, 2, []float64{
			1, 0,
			0.5, 0.5,
			0, 1,
		})
	}
	return snap
}

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(comp.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()
			snap := sampleSnapshot(true)

			name := SnapshotName("basis", 0, snap.Rank())
			require.NoError(t, WriteSnapshot(ctx, store, name, snap, comp))

			got, err := ReadSnapshot(ctx, store, name)
			require.NoError(t, err)

			assert.Equal(t, uint8(SnapshotKindBasis), got.Kind)
			assert.Equal(t, 1.25, got.StartTime)
			assert.Equal(t, 3, got.NumSamples)
			assert.Equal(t, 4, got.Dim())
			assert.Equal(t, 2, got.Rank())
			assert.True(t, mat.Equal(snap.Basis, got.Basis))
			assert.Equal(t, snap.SingularValues, got.SingularValues)
			require.NotNil(t, got.SampleCoords)
			assert.True(t, mat.Equal(snap.SampleCoords, got.SampleCoords))
		})
	}
}

func TestSnapshot_WithoutCoords(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	snap := sampleSnapshot(false)
	snap.Kind = SnapshotKindState

	require.NoError(t, WriteSnapshot(ctx, store, "s", snap, CompressionNone))

	got, err := ReadSnapshot(ctx, store, "s")
	require.NoError(t, err)
	assert.Nil(t, got.SampleCoords)
	assert.Equal(t, uint8(SnapshotKindState), got.Kind)
}

func TestSnapshot_CorruptionDetected(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	require.NoError(t, WriteSnapshot(ctx, store, "s", sampleSnapshot(true), CompressionNone))

	// Flip a payload byte behind the header.
	b, err := store.Open(ctx, "s")
	require.NoError(t, err)
	raw := make([]byte, b.Size())
	_, err = b.ReadAt(ctx, raw, 0)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	raw[80] ^= 0xFF
	require.NoError(t, store.Put(ctx, "s", raw))

	_, err = ReadSnapshot(ctx, store, "s")
	require.Error(t, err)
	assert.True(t, IsChecksumMismatch(err), "got %v", err)
}

func TestSnapshot_InvalidMagic(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "s", bytes.Repeat([]byte{0xAB}, 128)))

	_, err := ReadSnapshot(ctx, store, "s")
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestSnapshot_Validate(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	snap := sampleSnapshot(false)
	snap.SingularValues = []float64{1} // rank mismatch
	require.Error(t, WriteSnapshot(ctx, store, "s", snap, CompressionNone))

	snap = sampleSnapshot(true)
	snap.NumSamples = 7 // coords row mismatch
	require.Error(t, WriteSnapshot(ctx, store, "s", snap, CompressionNone))

	snap = sampleSnapshot(false)
	snap.Kind = 9
	require.Error(t, WriteSnapshot(ctx, store, "s", snap, CompressionNone))

	// Failed writes leave nothing behind.
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSnapshotName(t *testing.T) {
	assert.Equal(t, "basis.0000000003_12.basis", SnapshotName("basis", 3, 12))
	assert.Equal(t, "basis.state", StateName("basis"))
}

func TestMatData_StridedView(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	})
	view := m.Slice(1, 3, 1, 3).(*mat.Dense)

	assert.Equal(t, []float64{6, 7, 10, 11}, matData(view))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, matData(m))
}
