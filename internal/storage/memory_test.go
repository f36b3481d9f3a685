package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/model"
)

func seedMemoryStore(t *testing.T, keys ...string) *MemoryStore {
	t.Helper()

	store := NewMemoryStore("test-bucket")
	for _, key := range keys {
		body := "content of " + key
		if strings.HasSuffix(key, "/") {
			body = ""
		}
		_, err := store.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), "text/plain")
		require.NoError(t, err)
	}

	return store
}

func TestMemoryStoreBasicOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedMemoryStore(t)

	info, err := store.Put(ctx, "docs/hello.txt", strings.NewReader("hello world"), 11, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, model.KindFile, info.Kind)
	assert.EqualValues(t, 11, info.Size)
	assert.NotEmpty(t, info.ETag)

	reader, stat, err := store.Get(ctx, "docs/hello.txt")
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello world", string(content))
	assert.Equal(t, "text/plain", stat.ContentType)

	require.NoError(t, store.Copy(ctx, "docs/hello.txt", "archive/hello.txt"))
	require.NoError(t, store.Remove(ctx, "docs/hello.txt"))

	_, err = store.Stat(ctx, "docs/hello.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	exists, err := Exists(ctx, store, "archive/hello.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.RemoveBatch(ctx, []string{"archive/hello.txt", "missing"}))
	assert.Empty(t, store.Keys())
}

func TestMemoryStoreFolderMarkerClassification(t *testing.T) {
	t.Parallel()

	store := seedMemoryStore(t, "docs/")

	info, err := store.Stat(context.Background(), "docs/")
	require.NoError(t, err)
	assert.True(t, info.IsFolder())
}

func TestMemoryStoreDelimitedListing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedMemoryStore(t,
		"docs/",
		"docs/a.txt",
		"docs/b.txt",
		"docs/reports/",
		"docs/reports/q1.pdf",
		"docs/zeta/deep/file.bin",
		"other.txt",
	)

	page, err := store.ListPage(ctx, "docs/", "/", "", 100)
	require.NoError(t, err)
	assert.False(t, page.Truncated)
	assert.Equal(t, []string{"docs/reports/", "docs/zeta/"}, page.Prefixes)

	keys := make([]string, 0, len(page.Objects))
	for _, object := range page.Objects {
		keys = append(keys, object.Key)
	}
	assert.Equal(t, []string{"docs/", "docs/a.txt", "docs/b.txt"}, keys)
}

func TestMemoryStorePagination(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedMemoryStore(t, "p/1", "p/2", "p/3/x", "p/3/y", "p/4", "p/5")

	first, err := store.ListPage(ctx, "p/", "/", "", 2)
	require.NoError(t, err)
	require.True(t, first.Truncated)
	require.NotEmpty(t, first.NextToken)

	second, err := store.ListPage(ctx, "p/", "/", first.NextToken, 2)
	require.NoError(t, err)
	require.True(t, second.Truncated)
	assert.Equal(t, []string{"p/3/"}, second.Prefixes)

	all, err := ListAll(ctx, store, "p/", "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/3/"}, all.Prefixes)
	assert.Len(t, all.Objects, 4)
}

func TestMemoryStoreWalkStopsEarly(t *testing.T) {
	t.Parallel()

	store := seedMemoryStore(t, "a/1", "a/2", "a/3")

	visited := 0
	err := store.Walk(context.Background(), "a/", func(model.Object) error {
		visited++
		if visited == 2 {
			return ErrStopWalk
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, visited)
}

func TestMemoryStoreInjectedFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedMemoryStore(t, "a.txt")
	boom := &model.StorageError{Op: "copy", Key: "a.txt", Code: "SlowDown", Message: "reduce request rate"}
	store.FailOn("copy", "a.txt", boom)

	err := store.Copy(ctx, "a.txt", "b.txt")
	var storageErr *model.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "SlowDown", storageErr.Code)

	store.FailOn("copy", "a.txt", nil)
	require.NoError(t, store.Copy(ctx, "a.txt", "b.txt"))
}

func TestMemoryStorePresign(t *testing.T) {
	t.Parallel()

	store := seedMemoryStore(t, "docs/a b.txt")

	link, err := store.PresignGet(context.Background(), "docs/a b.txt", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, link, "memory://test-bucket/docs/a%20b.txt")
	assert.Contains(t, link, "X-Expires=3600")
}

func TestOccupied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedMemoryStore(t, "docs/a.txt", "marked/", "implicit/deep/file.bin")

	tests := []struct {
		key  string
		want bool
	}{
		{key: "docs/a.txt", want: true},
		{key: "docs", want: true},
		{key: "marked", want: true},
		{key: "implicit", want: true},
		{key: "implicit/deep", want: true},
		{key: "docs/a", want: false},
		{key: "doc", want: false},
		{key: "", want: true},
	}

	for _, tt := range tests {
		got, err := Occupied(ctx, store, tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.key)
	}

	store.FailOn("stat", "broken", errors.New("timeout"))
	_, err := Occupied(ctx, store, "broken")
	require.Error(t, err)
}
