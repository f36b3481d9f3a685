package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/model"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestLoggingRecordsPrincipalAndErrorCode(t *testing.T) {
	buf := captureLogs(t)

	mw := NewAuthMiddleware(stubValidator{"good": {UserID: "u1", Username: "alice"}})
	handler := Logging(mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusForbidden, "FORBIDDEN", model.ErrForbidden.Error())
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects?path=secret", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "alice", line["principal"])
	assert.Equal(t, "FORBIDDEN", line["error_code"])
	assert.Equal(t, "path=secret", line["query"])
	assert.Equal(t, "WARN", line["level"])
}

func TestLoggingKeepsIncomingRequestID(t *testing.T) {
	captureLogs(t)

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}
