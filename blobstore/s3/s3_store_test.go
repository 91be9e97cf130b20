package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/rombasis/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient implements Client with overridable behavior per call.
type fakeClient struct {
	headObject    func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	getObject     func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	putObject     func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	deleteObject  func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
	listObjectsV2 func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
}

func (f *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return f.headObject(in)
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.getObject(in)
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.putObject(in)
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return f.deleteObject(in)
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return f.listObjectsV2(in)
}

func (f *fakeClient) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClient) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeClient) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestStore_Open(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		client := &fakeClient{
			headObject: func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
				assert.Equal(t, "prefix/foo", aws.ToString(in.Key))
				return nil, &s3types.NotFound{}
			},
		}
		store := NewStore(client, "test-bucket", "prefix")
		_, err := store.Open(context.Background(), "foo")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		client := &fakeClient{
			headObject: func(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
				assert.Equal(t, "test-bucket", aws.ToString(in.Bucket))
				return &s3.HeadObjectOutput{ContentLength: aws.Int64(100)}, nil
			},
		}
		store := NewStore(client, "test-bucket", "prefix")
		blob, err := store.Open(context.Background(), "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(100), blob.Size())
	})
}

func TestStore_ReadAt(t *testing.T) {
	payload := []byte("0123456789")
	client := &fakeClient{
		headObject: func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(payload)))}, nil
		},
		getObject: func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			var start, end int64
			_, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end)
			require.NoError(t, err)
			return &s3.GetObjectOutput{
				Body: io.NopCloser(bytes.NewReader(payload[start : end+1])),
			}, nil
		},
	}
	store := NewStore(client, "b", "")

	blob, err := store.Open(context.Background(), "snap")
	require.NoError(t, err)

	p := make([]byte, 4)
	n, err := blob.ReadAt(context.Background(), p, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("3456"), p)

	// Read past the tail is truncated and reports EOF.
	n, err = blob.ReadAt(context.Background(), p, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("89"), p[:n])

	_, err = blob.ReadAt(context.Background(), p, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStore_PutSendsChecksum(t *testing.T) {
	var gotChecksum string
	client := &fakeClient{
		putObject: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			assert.Equal(t, "prefix/manifest.json", aws.ToString(in.Key))
			gotChecksum = aws.ToString(in.ChecksumCRC32C)
			return &s3.PutObjectOutput{}, nil
		},
	}
	store := NewStore(client, "b", "prefix")

	require.NoError(t, store.Put(context.Background(), "manifest.json", []byte("data")))
	assert.NotEmpty(t, gotChecksum)
}

func TestStore_List(t *testing.T) {
	client := &fakeClient{
		listObjectsV2: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "prefix/basis", aws.ToString(in.Prefix))
			return &s3.ListObjectsV2Output{
				Contents: []s3types.Object{
					{Key: aws.String("prefix/basis.1")},
					{Key: aws.String("prefix/basis.0")},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}
	store := NewStore(client, "b", "prefix")

	names, err := store.List(context.Background(), "basis")
	require.NoError(t, err)
	assert.Equal(t, []string{"basis.0", "basis.1"}, names)
}

func TestStore_Delete(t *testing.T) {
	deleted := false
	client := &fakeClient{
		deleteObject: func(in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
			assert.Equal(t, "prefix/old", aws.ToString(in.Key))
			deleted = true
			return &s3.DeleteObjectOutput{}, nil
		},
	}
	store := NewStore(client, "b", "prefix")

	require.NoError(t, store.Delete(context.Background(), "old"))
	assert.True(t, deleted)
}

func TestStore_CreateUploadsOnClose(t *testing.T) {
	var uploaded []byte
	client := &fakeClient{
		putObject: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			data, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			uploaded = data
			return &s3.PutObjectOutput{}, nil
		},
	}
	store := NewStore(client, "b", "prefix")

	w, err := store.Create(context.Background(), "snap")
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("x", 100)))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	assert.Len(t, uploaded, 100)

	// Double close is rejected.
	assert.Error(t, w.Close())
}

func TestComputeCRC32C(t *testing.T) {
	// Known vector: CRC32C("123456789") = 0xE3069283.
	assert.Equal(t, "4waSgw==", computeCRC32C([]byte("123456789")))
}
