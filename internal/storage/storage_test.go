package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBucket(t *testing.T) *LocalBucket {
	t.Helper()
	bucket, err := NewLocalBucket(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return bucket
}

func TestLocalBucket_PutGetDelete(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	err := bucket.Put(ctx, "uploads/a.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	rc, err := bucket.Get(ctx, "uploads/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, bucket.Delete(ctx, "uploads/a.txt"))
	_, err = bucket.Get(ctx, "uploads/a.txt")
	assert.Error(t, err)
}

func TestLocalBucket_PutRejectsOverwrite(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	require.NoError(t, bucket.Put(ctx, "a.txt", strings.NewReader("one")))
	err := bucket.Put(ctx, "a.txt", strings.NewReader("two"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLocalBucket_ListExcludesDirectories(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	require.NoError(t, bucket.Put(ctx, "cover.png", strings.NewReader("img")))
	require.NoError(t, bucket.Put(ctx, "agents/a1/docs/faq.pdf", strings.NewReader("doc")))

	objects, err := bucket.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "cover.png", objects[0].Name)
	assert.Equal(t, "image/png", objects[0].ContentType)

	nested, err := bucket.List(ctx, "agents/a1/docs")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "agents/a1/docs/faq.pdf", nested[0].Path)
}

func TestLocalBucket_ListMissingFolderIsEmpty(t *testing.T) {
	bucket := newTestBucket(t)

	objects, err := bucket.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalBucket_PublicURL(t *testing.T) {
	bucket := newTestBucket(t)

	assert.Equal(t, "http://localhost:8080/media/agents/a1/docs/faq.pdf",
		bucket.PublicURL("agents/a1/docs/faq.pdf"))
}

func TestLocalBucket_RejectsPathEscape(t *testing.T) {
	bucket := newTestBucket(t)
	ctx := context.Background()

	err := bucket.Put(ctx, "../outside.txt", strings.NewReader("x"))
	// Cleaned to /outside.txt inside the base dir, never the parent
	require.NoError(t, err)
	_, err = bucket.Get(ctx, "outside.txt")
	assert.NoError(t, err)
}
