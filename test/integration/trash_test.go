//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trashEntry struct {
	ID           string `json:"id"`
	OriginalPath string `json:"original_path"`
	Kind         string `json:"kind"`
}

func TestDeleteRestoreAndPurge(t *testing.T) {
	s := newServer(t)

	s.upload(t, s.adminToken, "docs", map[string]string{"a.txt": "a", "b.txt": "b"})

	resp, body := s.do(t, http.MethodDelete, "/api/v1/files?path=docs/a.txt", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[trashEntry](t, body)
	assert.Equal(t, "docs/a.txt", deleted.OriginalPath)

	resp, body = s.do(t, http.MethodGet, "/api/v1/objects?path=docs", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[listing](t, body).Files, 1)

	resp, body = s.do(t, http.MethodGet, "/api/v1/trash", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[struct {
		Items []trashEntry `json:"items"`
	}](t, body)
	require.Len(t, entries.Items, 1)

	resp, body = s.do(t, http.MethodPost, "/api/v1/trash/"+deleted.ID+"/restore", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	restored := decode[struct {
		RestoredPath string `json:"restored_path"`
	}](t, body)
	assert.Equal(t, "docs/a.txt", restored.RestoredPath)

	resp, body = s.do(t, http.MethodDelete, "/api/v1/folders?path=docs", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	folder := decode[trashEntry](t, body)
	assert.Equal(t, "folder", folder.Kind)

	resp, body = s.do(t, http.MethodGet, "/api/v1/objects", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	root := decode[listing](t, body)
	for _, dir := range root.Directories {
		assert.NotEqual(t, "docs", dir.Name)
	}

	resp, body = s.do(t, http.MethodDelete, "/api/v1/trash/"+folder.ID, s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	purged := decode[struct {
		PurgedFolders int `json:"purged_folders"`
	}](t, body)
	assert.Equal(t, 1, purged.PurgedFolders)

	resp, body = s.do(t, http.MethodPost, "/api/v1/trash/"+folder.ID+"/restore", s.adminToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)
}

func TestEmptyTrash(t *testing.T) {
	s := newServer(t)

	s.upload(t, s.adminToken, "tmp", map[string]string{"x.log": "x", "y.log": "y"})
	s.do(t, http.MethodDelete, "/api/v1/files?path=tmp/x.log", s.adminToken, nil)
	s.do(t, http.MethodDelete, "/api/v1/files?path=tmp/y.log", s.adminToken, nil)

	resp, body := s.do(t, http.MethodDelete, "/api/v1/trash", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	purged := decode[struct {
		PurgedFiles int `json:"purged_files"`
	}](t, body)
	assert.Equal(t, 2, purged.PurgedFiles)

	resp, body = s.do(t, http.MethodPost, "/api/v1/trash/purge-expired", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
}
