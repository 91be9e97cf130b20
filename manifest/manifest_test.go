package manifest

import (
	"context"
	"testing"

	"github.com/hupe1980/rombasis/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadEmpty(t *testing.T) {
	s := NewStore(blobstore.NewMemoryStore(), nil)

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, m.Version)
	assert.Zero(t, m.ID)
	assert.Empty(t, m.Intervals)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	s := NewStore(bs, nil)

	m := &Manifest{
		Dim: 1000,
		Intervals: []IntervalInfo{
			{Index: 0, StartTime: 0, Rank: 7, NumSamples: 100, Path: "basis.0000000000_7.basis"},
			{Index: 1, StartTime: 1.5, Rank: 3, NumSamples: 40, Path: "basis.0000000001_3.basis"},
		},
	}
	require.NoError(t, s.Save(ctx, m))
	assert.Equal(t, uint64(1), m.ID)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Dim, got.Dim)
	assert.Equal(t, m.Intervals, got.Intervals)
	assert.Equal(t, uint64(1), got.ID)

	// A second save writes a new manifest file and repoints CURRENT.
	m.Intervals = append(m.Intervals, IntervalInfo{Index: 2, StartTime: 3.0, Rank: 5, Path: "basis.0000000002_5.basis"})
	require.NoError(t, s.Save(ctx, m))
	assert.Equal(t, uint64(2), m.ID)

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Intervals, 3)

	names, err := bs.List(ctx, ManifestFileName)
	require.NoError(t, err)
	assert.Equal(t, []string{"MANIFEST-000001.json", "MANIFEST-000002.json"}, names)
}

func TestStore_LoadRejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	require.NoError(t, bs.Put(ctx, "MANIFEST-000001.json", []byte(`{"version": 99}`)))
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte("MANIFEST-000001.json")))

	_, err := NewStore(bs, nil).Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest version")
}

func TestStore_LoadDanglingCurrent(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte("MANIFEST-000042.json")))

	_, err := NewStore(bs, nil).Load(ctx)
	require.Error(t, err)
}
