package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/model"
)

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string, len(reader.File))
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[file.Name] = string(body)
	}
	return entries
}

func TestBulkDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "docs/a.txt", "docs/b.txt", "private/c.txt", "docs/folder/x.txt")
	alice := f.member(t, "alice", grant("docs", model.CapabilityDelete))

	result := f.bulk.BulkDelete(context.Background(), alice,
		[]string{"docs/a.txt", "private/c.txt", "docs/missing.txt"},
		[]string{"docs/folder"},
	)

	assert.Equal(t, 1, result.DeletedFiles)
	assert.Equal(t, 1, result.DeletedFolders)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "file private/c.txt: "+model.ErrForbidden.Error(), result.Errors[0])
	assert.Contains(t, result.Errors[1], "docs/missing.txt")

	entries, err := f.entries.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, f.auditRecords(t, model.ActionDelete), 3)
}

func TestBulkMove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "src/a.txt", "src/b.txt", "src/dir/", "src/dir/c.txt", "dest/")

	result := f.bulk.BulkMove(context.Background(), adminActor,
		[]string{"src/a.txt", "src/gone.txt"},
		[]string{"src/dir", "dest"},
		"dest/dir",
	)

	assert.Equal(t, 1, result.MovedFiles)
	assert.Equal(t, 1, result.MovedFolders)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "src/gone.txt")
	assert.Contains(t, result.Errors[1], "folder dest: ")
	assert.Contains(t, result.Errors[1], "cannot move a folder into itself")

	assert.True(t, f.exists(t, "dest/dir/a.txt"))
	assert.True(t, f.exists(t, "dest/dir/dir/c.txt"))
	assert.False(t, f.exists(t, "src/dir/c.txt"))
	assert.True(t, f.exists(t, "dest/"))
}

func TestBulkDownload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t,
		"docs/a.txt",
		"docs/sub/",
		"docs/sub/b.txt",
		"docs/sub/deep/c.txt",
		"other/a.txt",
		"private/secret.txt",
	)
	f.store.FailOn("get", "docs/sub/deep/c.txt", errors.New("read timeout"))
	alice := f.member(t, "alice", grant("docs", model.CapabilityRead), grant("other", model.CapabilityRead))

	var buf bytes.Buffer
	err := f.bulk.BulkDownload(context.Background(), alice,
		[]string{"docs/a.txt", "other/a.txt", "private/secret.txt"},
		[]string{"docs/sub"},
		&buf,
	)
	require.NoError(t, err)

	entries := readZip(t, buf.Bytes())
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	assert.Equal(t, []string{"ERRORS.txt", "a (1).txt", "a.txt", "sub/", "sub/b.txt"}, names)
	assert.Equal(t, "docs/a.txt", entries["a.txt"])
	assert.Equal(t, "other/a.txt", entries["a (1).txt"])
	assert.Contains(t, entries["ERRORS.txt"], "file private/secret.txt: "+model.ErrForbidden.Error())
	assert.Contains(t, entries["ERRORS.txt"], "docs/sub/deep/c.txt")

	records := f.auditRecords(t, model.ActionBulkDownload)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestBulkDownloadStopsOnWriteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "a.txt", "b.txt")

	err := f.bulk.BulkDownload(context.Background(), adminActor, []string{"a.txt", "b.txt"}, nil, failingWriter{})
	require.Error(t, err)
}
