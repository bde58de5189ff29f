// Package authsvc registers users, issues signed auth tokens and decides who
// holds admin rights.
package authsvc

import (
	"context"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkrupp/saba-backend/internal/domain"
	context_ "github.com/mkrupp/saba-backend/internal/infra/context"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/user"
	"github.com/mkrupp/saba-backend/internal/svc/usersvc"
)

// APIKeyPrincipalID identifies requests authorized by the admin API key.
const APIKeyPrincipalID = "admin-api-key"

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// SigningKeyFile is the path to the RSA private key file, generated on first start
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/data/signing.key"`

	// TokenDuration is the validity duration of auth tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"24h"`

	// Issuer is the iss claim of issued tokens
	Issuer string `env:"ISSUER" default:"saba-backend"`

	// AdminAPIKey, when set, is accepted as a bearer credential with admin rights
	AdminAPIKey string `env:"ADMIN_API_KEY" default:""`

	// AdminEmails receive the admin role on login
	AdminEmails []string `env:"ADMIN_EMAILS" default:""`
}

// UserCounter records registrations in the usage metrics.
type UserCounter interface {
	Increment(ctx context.Context, name string, delta int64) (domain.Metrics, error)
	SetTotalUsers(ctx context.Context, total int64) error
}

// AuthService provides authentication and user management functionality.
// It handles user registration, login, and token validation.
type AuthService struct {
	Config     AuthConfig
	Users      *usersvc.Directory
	Counter    UserCounter
	Log        logging.Logger
	SigningKey *rsa.PrivateKey
	Now        func() time.Time
}

// NewAuthService creates a new AuthService with the given user directory, metrics counter and configuration.
// Returns an error if the signing key cannot be loaded or created.
func NewAuthService(users *usersvc.Directory, counter UserCounter, cfg AuthConfig) (*AuthService, error) {
	signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("get private key: %w", err)
	}

	return &AuthService{
		Config:     cfg,
		Users:      users,
		Counter:    counter,
		Log:        logging.GetLogger("svc.authsvc.auth_service"),
		SigningKey: signingKey,
		Now:        time.Now,
	}, nil
}

// Register creates a new user account and counts it in the totalUsers metric.
// A failure to update the metric is logged but does not fail the registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (_ domain.PublicUser, err error) {
	log := s.Log.With(logging.Group("user", "email", user.NormalizeEmail(email)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.InfoContext(ctx, "user registered")
		}
	}()

	created, err := s.Users.Create(ctx, name, email, password)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("create user: %w", err)
	}

	if s.Counter != nil {
		if _, err := s.Counter.Increment(ctx, domain.CounterTotalUsers, 1); err != nil {
			log.WarnContext(ctx, "count user failed", "error", err)
		}
	}

	return created, nil
}

// ReconcileUserCount sets the totalUsers metric to the number of registered users.
func (s *AuthService) ReconcileUserCount(ctx context.Context) (err error) {
	var total int

	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "reconcile user count failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "user count reconciled", "total", total)
		}
	}()

	if s.Counter == nil {
		return nil
	}

	users, err := s.Users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	total = len(users)

	if err := s.Counter.SetTotalUsers(ctx, int64(total)); err != nil {
		return fmt.Errorf("set total users: %w", err)
	}

	return nil
}

// Login authenticates a user and generates a signed JWT token.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ domain.AuthTokenResponse, err error) {
	log := s.Log.With(logging.Group("user", "email", user.NormalizeEmail(email)))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	verified, err := s.Users.Verify(ctx, email, password)
	if err != nil {
		return domain.AuthTokenResponse{}, fmt.Errorf("verify user: %w", err)
	}

	now := s.Now()
	role := domain.RoleUser

	if slices.ContainsFunc(s.Config.AdminEmails, func(admin string) bool {
		return user.NormalizeEmail(admin) == verified.Email
	}) {
		role = domain.RoleAdmin
	}

	claims := domain.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Config.Issuer,
			Subject:   verified.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Config.TokenDuration)),
			ID:        uuid.NewString(),
		},
		Email: verified.Email,
		Name:  verified.Name,
		Role:  role,
	}

	log = log.With(logging.Group("token",
		"sub", claims.Subject,
		"role", claims.Role,
		"exp", claims.ExpiresAt.UTC().Format(time.RFC3339),
	))

	token, err := SignToken(claims, s.SigningKey)
	if err != nil {
		return domain.AuthTokenResponse{}, err
	}

	return domain.AuthTokenResponse{Token: token, User: verified}, nil
}

// ValidateToken verifies a JWT token's signature and expiration.
// Returns the decoded claims if valid, or an error wrapping domain.ErrInvalidAuthToken.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (claims domain.AuthClaims, err error) {
	defer func() {
		if err != nil {
			s.Log.WarnContext(ctx, "validate token failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "token validated", logging.Group("token", "sub", claims.Subject, "role", claims.Role))
		}
	}()

	claims, err = ValidateToken(tokenString, &s.SigningKey.PublicKey, s.Config.Issuer, s.Now)
	if err != nil {
		return domain.AuthClaims{}, fmt.Errorf("validate token: %w", err)
	}

	return claims, nil
}

// Authorize resolves a bearer credential into a principal. The admin API key,
// when configured, yields an admin principal; anything else must be a valid token.
func (s *AuthService) Authorize(ctx context.Context, bearer string) (context_.Principal, error) {
	if key := s.Config.AdminAPIKey; key != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(key)) == 1 {
		return context_.Principal{UserID: APIKeyPrincipalID, Email: "", Admin: true}, nil
	}

	claims, err := s.ValidateToken(ctx, bearer)
	if err != nil {
		return context_.Principal{}, err
	}

	return context_.Principal{UserID: claims.Subject, Email: claims.Email, Admin: claims.IsAdmin()}, nil
}

// Close releases resources held by the service, such as database connections.
func (s *AuthService) Close() error {
	if err := s.Users.Close(); err != nil {
		return fmt.Errorf("close users: %w", err)
	}

	return nil
}
