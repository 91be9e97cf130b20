package blobstore

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/rombasis/internal/cache"
	"github.com/stretchr/testify/require"
)

// countingStore wraps MemoryStore and counts backend ReadAt calls.
type countingStore struct {
	*MemoryStore
	reads atomic.Int64
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, reads: &s.reads}, nil
}

type countingBlob struct {
	Blob
	reads *atomic.Int64
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.reads.Add(1)
	return b.Blob.ReadAt(ctx, p, off)
}

func TestCachingStore_SecondReadHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}

	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, inner.Put(ctx, "snap", payload))

	lru := cache.NewLRU(1 << 20)
	s := NewCachingStore(inner, lru, 256)

	b, err := s.Open(ctx, "snap")
	require.NoError(t, err)
	defer b.Close()

	got := make([]byte, 1000)
	n, err := b.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	require.Equal(t, 1000, n)
	require.Equal(t, payload, got)

	before := inner.reads.Load()
	require.Positive(t, before)

	// Re-read: all four blocks are cached, no backend traffic.
	n, err = b.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	require.Equal(t, 1000, n)
	require.Equal(t, payload, got)
	require.Equal(t, before, inner.reads.Load())

	hits, _ := lru.Stats()
	require.Positive(t, hits)
}

func TestCachingStore_UnalignedReads(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()

	payload := make([]byte, 777)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, inner.Put(ctx, "snap", payload))

	s := NewCachingStore(inner, cache.NewLRU(1<<20), 64)
	b, err := s.Open(ctx, "snap")
	require.NoError(t, err)
	defer b.Close()

	// Read crossing block boundaries at an odd offset.
	got := make([]byte, 200)
	n, err := b.ReadAt(ctx, got, 33)
	require.NoError(t, err)
	require.Equal(t, 200, n)
	require.Equal(t, payload[33:233], got)

	// Short read at the tail.
	got = make([]byte, 100)
	n, err = b.ReadAt(ctx, got, 750)
	require.Error(t, err)
	require.Equal(t, 27, n)
	require.Equal(t, payload[750:], got[:n])
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "snap", []byte("old-old-old-old-")))

	s := NewCachingStore(inner, cache.NewLRU(1<<20), 4)
	b, err := s.Open(ctx, "snap")
	require.NoError(t, err)

	got := make([]byte, 16)
	_, err = b.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	require.NoError(t, s.Put(ctx, "snap", []byte("new-new-new-new-")))

	b, err = s.Open(ctx, "snap")
	require.NoError(t, err)
	defer b.Close()
	_, err = b.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("new-new-new-new-"), got)
}
