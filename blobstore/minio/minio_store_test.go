package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-rombasis"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	// Put and Open
	data := []byte("interval snapshot bytes")
	require.NoError(t, store.Put(ctx, "basis.0", data))

	blob, err := store.Open(ctx, "basis.0")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	p := make([]byte, 8)
	n, err := blob.ReadAt(ctx, p, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), p[:n])
	require.NoError(t, blob.Close())

	// Streaming create
	w, err := store.Create(ctx, "basis.1")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "basis.")
	require.NoError(t, err)
	assert.Contains(t, names, "basis.0")
	assert.Contains(t, names, "basis.1")

	// Cleanup
	require.NoError(t, store.Delete(ctx, "basis.0"))
	require.NoError(t, store.Delete(ctx, "basis.1"))
	require.NoError(t, store.Delete(ctx, "basis.0"), "delete is idempotent")

	// Open after delete
	_, err = store.Open(ctx, "basis.0")
	assert.Error(t, err)
}
