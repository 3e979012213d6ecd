package minio

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/appendbuf"
	"github.com/hupe1980/appendbuf/archive"
	"github.com/hupe1980/appendbuf/block"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newTestStore connects to a MinIO instance and skips when none is reachable.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	client, err := minio.New(envOr("MINIO_ENDPOINT", "localhost:9000"), &minio.Options{
		Creds:  credentials.NewStaticV4(envOr("MINIO_ACCESS_KEY", "minioadmin"), envOr("MINIO_SECRET_KEY", "minioadmin"), ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-appendbuf"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	return NewStore(client, bucket, fmt.Sprintf("run-%d/", time.Now().UnixNano()))
}

func TestMinioStore_Integration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.bin", data))

	got, err := store.Get(ctx, "test.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.bin"}, names)

	require.NoError(t, store.Delete(ctx, "test.bin"))
	require.NoError(t, store.Delete(ctx, "test.bin"))

	_, err = store.Get(ctx, "test.bin")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}

func TestMinioStore_Archiver(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pool, err := block.NewPool(block.Config{BlockSize: appendbuf.HeaderSize + 1024, BlockCount: 2})
	require.NoError(t, err)
	defer pool.Close()

	buf, err := appendbuf.New(pool)
	require.NoError(t, err)
	buf.Fill([]byte("snapshot for minio"))
	view := buf.Slice()
	require.NoError(t, buf.Close())

	arc := archive.New(store, archive.WithCodec(archive.CodecZSTD))
	require.NoError(t, arc.Put(ctx, "snap", view))
	require.NoError(t, view.Release())

	restored, err := arc.Restore(ctx, "snap", pool)
	require.NoError(t, err)
	assert.Equal(t, "snapshot for minio", string(restored.Bytes()))
	require.NoError(t, restored.Close())
	require.NoError(t, arc.Delete(ctx, "snap"))
}
