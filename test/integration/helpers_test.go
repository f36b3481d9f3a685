//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"s3-explorer/internal/app"
	"s3-explorer/internal/config"
)

const (
	adminUsername = "admin"
	adminPassword = "Admin-password-1"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	*httptest.Server
	adminToken string
}

// newServer boots the whole application over the in-memory store and
// record backends.
func newServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServerPort:          "0",
		RequestTimeout:      10 * time.Second,
		TransferTimeout:     time.Minute,
		TransferIdleTimeout: 10 * time.Second,
		StorageBackend:      config.StorageBackendMemory,
		TrashPrefix:         ".trash",
		TrashRetention:      time.Hour,
		PresignTTL:          time.Hour,
		SearchMaxResults:    100,
		MoveConcurrency:     4,
		MaxUploadSize:       1 << 20,
		JWTSecret:           "integration-secret",
		JWTAccessTTL:        time.Hour,
		AdminUsername:       adminUsername,
		AdminPassword:       adminPassword,
		CORSOrigins:         []string{"*"},
		RateLimitRPM:        0,
		AuthRateLimitRPM:    1000,
	}
	require.NoError(t, cfg.Validate())

	application, err := app.Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	ts := &testServer{Server: server}
	ts.adminToken = ts.login(t, adminUsername, adminPassword)
	return ts
}

func (s *testServer) login(t *testing.T, username string, password string) string {
	t.Helper()

	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	return tokens.AccessToken
}

// member creates a regular user through the admin API, applies grants and
// returns their token.
func (s *testServer) member(t *testing.T, username string, grants ...map[string]any) string {
	t.Helper()

	password := "Member-password-1"
	resp, body := s.do(t, http.MethodPost, "/api/v1/admin/users", s.adminToken, map[string]any{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &user))

	for _, grant := range grants {
		resp, _ := s.do(t, http.MethodPut, "/api/v1/admin/users/"+user.ID+"/grants", s.adminToken, grant)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	return s.login(t, username, password)
}

func (s *testServer) do(t *testing.T, method string, path string, token string, payload any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.send(t, req)
}

func (s *testServer) upload(t *testing.T, token string, folder string, files map[string]string) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("path", folder))
	for name, content := range files {
		part, err := writer.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func decode[T any](t *testing.T, body envelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(body.Data, &out))
	return out
}
