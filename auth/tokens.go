// Package auth implements the credential primitives of the application:
// password hashing, the JWT issuer/verifier, and the HTTP middleware that
// gates protected routes. Tokens are stateless HS256 JWTs; expiry is the only
// termination mechanism, revocation is not supported.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/config"
)

// Claims is the payload of an issued token: the identity fields plus the
// standard registered claims (issued-at, expiry).
type Claims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates bearer tokens with a server-held secret.
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
}

// NewTokenIssuer builds a TokenIssuer from the auth configuration. A missing
// secret is a configuration error and fails at startup, not per request.
func NewTokenIssuer(cfg *config.AuthConfig) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, apperror.NewConfigError("JWT secret is not configured", nil)
	}
	duration := cfg.TokenDuration
	if duration <= 0 {
		duration = 168 * time.Hour
	}
	return &TokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		duration: duration,
	}, nil
}

// Issue signs a time-bounded token carrying the given identity claims.
func (ti *TokenIssuer) Issue(userID, email, username, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.duration)),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. It fails with an AuthError when
// the token is malformed, the signature is invalid, the token is expired, or
// any of the required identity claims is absent. Verification is pure: no
// storage is consulted.
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.NewAuthError("token has expired", err)
		}
		return nil, apperror.NewAuthError("invalid token", err)
	}
	if !token.Valid {
		return nil, apperror.NewAuthError("invalid token", nil)
	}

	if claims.UserID == "" || claims.Email == "" || claims.Username == "" || claims.Role == "" {
		return nil, apperror.NewAuthError("invalid token payload", nil)
	}

	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// The header must match `Bearer <token>` exactly: single space, case-sensitive
// scheme.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.NewAuthError("Authorization header is missing", nil)
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", apperror.NewAuthError("Authorization header format must be: Bearer <token>", nil)
	}
	return parts[1], nil
}
