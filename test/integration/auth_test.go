//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndMe(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/v1/auth/me", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me := decode[struct {
		Username    string `json:"username"`
		IsSuperuser bool   `json:"is_superuser"`
	}](t, body)
	assert.Equal(t, adminUsername, me.Username)
	assert.True(t, me.IsSuperuser)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/v1/objects", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/objects", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFailedLoginIsAudited(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": adminUsername,
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/v1/admin/audit?action=login&success=false", s.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	audit := decode[struct {
		Items []struct {
			Username string `json:"username"`
			Success  bool   `json:"success"`
		} `json:"items"`
	}](t, body)
	require.Len(t, audit.Items, 1)
	assert.Equal(t, adminUsername, audit.Items[0].Username)
	assert.False(t, audit.Items[0].Success)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	resp, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
