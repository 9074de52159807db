// Package auth resolves bearer credentials into request identities and
// gates operations on role scopes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

var (
	// ErrUnauthenticated is returned when a credential is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when an authenticated caller lacks the
	// scope an operation requires.
	ErrForbidden = errors.New("forbidden")
)

// Identity is the per-request authorization context. It lives only for the
// duration of one request and is never persisted.
type Identity struct {
	Subject string
	Role    string
}

// Claims is the token payload: the standard registered set plus the role
// claim the scope gate evaluates.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator mints and verifies the HS256 bearer tokens issued by the
// credential-exchange endpoints.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator builds an Authenticator from the deployment secret.
// A zero ttl defaults to 24 hours.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token carrying the subject and role.
func (a *Authenticator) Issue(subject, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses and validates a raw token, producing the request identity.
// Any failure maps to ErrUnauthenticated; the cause is attached for logs.
func (a *Authenticator) Verify(raw string) (Identity, error) {
	keyFn := func(token *jwt.Token) (interface{}, error) {
		// Check for the expected signing method.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, keyFn)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", fmt.Errorf("%w: no bearer credential", ErrUnauthenticated)
	}
	return parts[1], nil
}
