package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/model"
)

type stubValidator map[string]*model.AuthClaims

func (s stubValidator) ValidateToken(token string) (*model.AuthClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("bad token")
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubValidator{
		"good": {UserID: "u1", Username: "alice"},
	})

	var seen *model.AuthClaims
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "bearer good", http.StatusNoContent},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/objects", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.name)
	}

	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}

type recordedDenial struct {
	username string
	action   model.AuditAction
	path     string
	success  bool
}

type denialLog struct {
	mu      sync.Mutex
	records []recordedDenial
}

func (d *denialLog) Record(_ context.Context, actor model.Actor, action model.AuditAction, path string, success bool, _ string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, recordedDenial{username: actor.Username, action: action, path: path, success: success})
}

func TestRequireSuperuser(t *testing.T) {
	t.Parallel()

	denials := &denialLog{}
	mw := NewAuthMiddleware(stubValidator{
		"admin":  {UserID: "a", Username: "admin", IsSuperuser: true},
		"member": {UserID: "m", Username: "member"},
	}).RecordDenials(denials)
	handler := mw.RequireAuth(mw.RequireSuperuser(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for token, status := range map[string]int{"admin": http.StatusOK, "member": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, token)
	}

	assert.Equal(t, []recordedDenial{
		{username: "member", action: model.ActionAdminAccess, path: "/api/v1/admin/stats"},
	}, denials.records)
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	t.Parallel()

	handler := Logging(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"INTERNAL_ERROR"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
