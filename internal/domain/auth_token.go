package domain

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthClaims are the claims carried by an issued auth token. The subject is the user ID.
type AuthClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the token grants admin access.
func (c AuthClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// AuthTokenResponse is returned by a successful login.
type AuthTokenResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}
