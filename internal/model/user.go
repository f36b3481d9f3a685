package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the identity attached to a request. Core services trust it
// without re-validating credentials.
type Principal struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	IsSuperuser     bool   `json:"is_superuser"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// PrincipalID returns nil for anonymous principals so audit rows store NULL.
func (p Principal) PrincipalID() *string {
	if !p.IsAuthenticated || p.ID == "" {
		return nil
	}

	id := p.ID
	return &id
}

type AuthClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"su"`
	TokenID     string `json:"jti"`
}

func (c AuthClaims) Principal() Principal {
	return Principal{
		ID:              c.UserID,
		Username:        c.Username,
		IsSuperuser:     c.IsSuperuser,
		IsAuthenticated: c.UserID != "",
	}
}

type AuthUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
}

type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        AuthUser `json:"user"`
}

// Actor is the principal behind a request plus where it came from.
type Actor struct {
	Principal
	ClientAddress string
}
