package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
	"s3-explorer/pkg/apierror"
)

const bcryptCost = 12

type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
	users     repository.UserStore
}

func NewAuthService(jwtSecret string, accessTTL time.Duration, users repository.UserStore) (*AuthService, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		users:     users,
	}, nil
}

// EnsureAdmin seeds the bootstrap superuser when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username string, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	if strings.TrimSpace(password) == "" {
		slog.Warn("admin user missing and ADMIN_PASSWORD is empty; skipping seed", "username", username)
		return nil
	}

	if _, err := s.createUser(ctx, username, password, true); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	slog.Info("admin user seeded", "username", username)
	return nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenResponse{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenResponse{}, err
	}

	if !user.IsActive {
		return model.TokenResponse{}, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenResponse{}, model.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *AuthService) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	claims := &model.AuthClaims{}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.IsSuperuser, _ = claimsMap["su"].(bool)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return claims, nil
}

func (s *AuthService) CreateUser(ctx context.Context, actor model.Actor, req model.CreateUserRequest) (model.AuthUser, error) {
	if !actor.IsSuperuser {
		return model.AuthUser{}, model.ErrForbidden
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return model.AuthUser{}, apierror.BadRequest("username and password are required", "")
	}
	if len(req.Password) < 8 {
		return model.AuthUser{}, apierror.BadRequest("password must be at least 8 characters", "")
	}

	return s.createUser(ctx, username, req.Password, req.IsSuperuser)
}

func (s *AuthService) ListUsers(ctx context.Context, actor model.Actor) ([]model.AuthUser, error) {
	if !actor.IsSuperuser {
		return nil, model.ErrForbidden
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.AuthUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAuthUser(u))
	}
	return out, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}

	return toAuthUser(user), nil
}

func (s *AuthService) createUser(ctx context.Context, username string, password string, superuser bool) (model.AuthUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.AuthUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsSuperuser:  superuser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthUser{}, err
	}

	return toAuthUser(user), nil
}

func (s *AuthService) issueToken(user model.User) (model.TokenResponse, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"su":       user.IsSuperuser,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return model.TokenResponse{}, apierror.New("TOKEN_ERROR", "could not issue token", "", http.StatusInternalServerError)
	}

	return model.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        toAuthUser(user),
	}, nil
}

func toAuthUser(user model.User) model.AuthUser {
	return model.AuthUser{ID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser}
}
