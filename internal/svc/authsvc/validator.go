package authsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/saba-backend/internal/domain"
)

// SignToken signs the claims as an RS256 JWT.
func SignToken(claims domain.AuthClaims, signingKey *rsa.PrivateKey) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

// ValidateToken validates an authentication token by:
// - Verifying the RS256 signature against publicKey
// - Checking the issuer, when one is given
// - Checking expiry against now
// Returns domain.ErrInvalidAuthToken joined with the cause for any validation failure.
func ValidateToken(
	tokenString string,
	publicKey *rsa.PublicKey,
	issuer string,
	now func() time.Time,
) (domain.AuthClaims, error) {
	if tokenString == "" {
		return domain.AuthClaims{}, domain.ErrInvalidAuthToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	var claims domain.AuthClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return publicKey, nil
	}, opts...)
	if err != nil {
		return domain.AuthClaims{}, errors.Join(domain.ErrInvalidAuthToken, err)
	}

	if claims.Subject == "" {
		return domain.AuthClaims{}, fmt.Errorf("%w: no subject", domain.ErrInvalidAuthToken)
	}

	return claims, nil
}
