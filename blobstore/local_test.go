package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	want := []byte("interval 0 snapshot bytes")
	require.NoError(t, s.Put(ctx, "basis.0000000000_3.basis", want))

	b, err := s.Open(ctx, "basis.0000000000_3.basis")
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, int64(len(want)), b.Size())

	got := make([]byte, len(want))
	n, err := b.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.Equal(t, want, got)

	// Local blobs expose their mapping.
	m, ok := b.(Mappable)
	require.True(t, ok)
	raw, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, want, raw)
}

func TestLocalStore_CreateStreamsAndCommitsOnClose(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	w, err := s.Create(ctx, "snapshot")
	require.NoError(t, err)
	_, err = w.Write([]byte("part one "))
	require.NoError(t, err)
	_, err = w.Write([]byte("part two"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	// Not visible until Close.
	_, err = s.Open(ctx, "snapshot")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())

	b, err := s.Open(ctx, "snapshot")
	require.NoError(t, err)
	defer b.Close()
	require.Equal(t, int64(len("part one part two")), b.Size())
}

func TestLocalStore_ReadAtPastEnd(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "blob", []byte("abc")))

	b, err := s.Open(ctx, "blob")
	require.NoError(t, err)
	defer b.Close()

	p := make([]byte, 4)
	n, err := b.ReadAt(ctx, p, 1)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
	require.Equal(t, []byte("bc"), p[:n])

	_, err = b.ReadAt(ctx, p, 10)
	require.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "basis.0", []byte("a")))
	require.NoError(t, s.Put(ctx, "basis.1", []byte("b")))
	require.NoError(t, s.Put(ctx, "other", []byte("c")))

	names, err := s.List(ctx, "basis.")
	require.NoError(t, err)
	require.Equal(t, []string{"basis.0", "basis.1"}, names)

	require.NoError(t, s.Delete(ctx, "basis.0"))
	require.NoError(t, s.Delete(ctx, "basis.0"), "delete is idempotent")

	names, err = s.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"basis.1", "other"}, names)

	_, err = s.Open(ctx, "basis.0")
	require.ErrorIs(t, err, ErrNotFound)
}
