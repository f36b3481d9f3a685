package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
)

func newAuthService(t *testing.T) (*AuthService, *repository.MemoryUserStore) {
	t.Helper()

	users := repository.NewMemoryUserStore()
	auth, err := NewAuthService("test-secret", 15*time.Minute, users)
	require.NoError(t, err)
	return auth, users
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewAuthService("  ", time.Minute, repository.NewMemoryUserStore())
	require.Error(t, err)
}

func TestLoginAndValidate(t *testing.T) {
	t.Parallel()

	auth, _ := newAuthService(t)
	ctx := context.Background()
	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "correct horse"))
	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "ignored on second run"))

	token, err := auth.Login(ctx, "admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(900), token.ExpiresIn)
	assert.True(t, token.User.IsSuperuser)

	claims, err := auth.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.User.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.Principal().IsSuperuser)
	assert.NotEmpty(t, claims.TokenID)

	_, err = auth.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody", "whatever")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestValidateTokenRejects(t *testing.T) {
	t.Parallel()

	auth, _ := newAuthService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	foreignSigned, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "x"})
	noSubjectSigned, err := noSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-token",
		"expired":    signed,
		"foreign":    foreignSigned,
		"no subject": noSubjectSigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(token)
			require.Error(t, err)
		})
	}
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	auth, _ := newAuthService(t)
	ctx := context.Background()
	member := model.Actor{Principal: model.Principal{ID: "m", Username: "m", IsAuthenticated: true}}

	_, err := auth.CreateUser(ctx, member, model.CreateUserRequest{Username: "eve", Password: "password1"})
	require.ErrorIs(t, err, model.ErrForbidden)

	_, err = auth.CreateUser(ctx, adminActor, model.CreateUserRequest{Username: "eve", Password: "short"})
	require.Error(t, err)

	created, err := auth.CreateUser(ctx, adminActor, model.CreateUserRequest{Username: " eve ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "eve", created.Username)
	assert.False(t, created.IsSuperuser)

	_, err = auth.CreateUser(ctx, adminActor, model.CreateUserRequest{Username: "EVE", Password: "password1"})
	require.ErrorIs(t, err, model.ErrUserAlreadyExists)

	users, err := auth.ListUsers(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	found, err := auth.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}
