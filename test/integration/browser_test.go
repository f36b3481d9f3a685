//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	Path        string  `json:"path"`
	ParentPath  *string `json:"parent_path"`
	Directories []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"directories"`
	Files []struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Size int64  `json:"size"`
	} `json:"files"`
}

func TestBrowseUploadAndLink(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/folders", s.adminToken, map[string]string{"path": "docs"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.upload(t, s.adminToken, "docs", map[string]string{"readme.txt": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decode[struct {
		Uploaded []struct {
			Path string `json:"path"`
		} `json:"uploaded"`
	}](t, body)
	require.Len(t, uploaded.Uploaded, 1)
	assert.Equal(t, "docs/readme.txt", uploaded.Uploaded[0].Path)

	resp, body = s.do(t, http.MethodGet, "/api/v1/objects?path=docs", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[listing](t, body)
	require.NotNil(t, list.ParentPath)
	assert.Equal(t, "", *list.ParentPath)
	require.Len(t, list.Files, 1)
	assert.Equal(t, int64(5), list.Files[0].Size)

	resp, body = s.do(t, http.MethodGet, "/api/v1/files/link?path=docs/readme.txt&ttl=120", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	link := decode[struct {
		URL       string `json:"url"`
		ExpiresIn int64  `json:"expires_in"`
	}](t, body)
	assert.NotEmpty(t, link.URL)
	assert.Equal(t, int64(120), link.ExpiresIn)

	resp, body = s.do(t, http.MethodGet, "/api/v1/files/link?path=docs/missing.txt", s.adminToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestMoveAndSearch(t *testing.T) {
	s := newServer(t)

	s.upload(t, s.adminToken, "inbox", map[string]string{"report-2026.pdf": "pdf"})
	resp, _ := s.do(t, http.MethodPost, "/api/v1/folders", s.adminToken, map[string]string{"path": "archive"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/objects/move", s.adminToken, map[string]any{
		"source":      "inbox/report-2026.pdf",
		"destination": "archive",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[struct {
		Destination string `json:"destination"`
	}](t, body)
	assert.Equal(t, "archive/report-2026.pdf", moved.Destination)

	resp, body = s.do(t, http.MethodGet, "/api/v1/search?q=report", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[struct {
		Items []struct {
			Path string `json:"path"`
		} `json:"items"`
	}](t, body)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "archive/report-2026.pdf", found.Items[0].Path)

	resp, body = s.do(t, http.MethodGet, "/api/v1/folders/suggest?q=arch", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suggestions := decode[struct {
		Folders []string `json:"folders"`
	}](t, body)
	assert.Contains(t, suggestions.Folders, "archive")
}

func TestMemberPermissions(t *testing.T) {
	s := newServer(t)

	s.upload(t, s.adminToken, "shared", map[string]string{"a.txt": "a"})
	s.upload(t, s.adminToken, "private", map[string]string{"b.txt": "b"})
	token := s.member(t, "alice", map[string]any{"path": "shared", "can_read": true})

	resp, _ := s.do(t, http.MethodGet, "/api/v1/objects?path=shared", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/v1/objects?path=private", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	resp, _ = s.upload(t, token, "shared", map[string]string{"c.txt": "c"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "every part fails without write")

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/files?path=shared/a.txt", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/trash", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/objects?path=.trash", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
