package middleware

import (
	"context"
	"net/http"
	"strings"

	"s3-explorer/internal/model"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*model.AuthClaims, error)
}

// denialRecorder receives admin-surface rejections so they land in the
// audit log alongside the ones services record.
type denialRecorder interface {
	Record(ctx context.Context, actor model.Actor, action model.AuditAction, path string, success bool, detail string)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	validator tokenValidator
	denials   denialRecorder
}

func NewAuthMiddleware(validator tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

func (m *AuthMiddleware) RecordDenials(recorder denialRecorder) *AuthMiddleware {
	m.denials = recorder
	return m
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		claims, err := m.validator.ValidateToken(strings.TrimSpace(header[7:]))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		noteLogPrincipal(r.Context(), claims.Username)
		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperuser guards the admin surface. Services repeat the check, so
// this only saves a round trip for obviously unprivileged callers.
func (m *AuthMiddleware) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		if !claims.IsSuperuser {
			if m.denials != nil {
				actor := model.Actor{Principal: claims.Principal(), ClientAddress: ClientIP(r)}
				m.denials.Record(r.Context(), actor, model.ActionAdminAccess, r.URL.Path, false, model.ErrForbidden.Error())
			}
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", model.ErrForbidden.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}
