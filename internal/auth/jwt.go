// Package auth provides session tokens, the session cookie, password hashing,
// Google sign-in and the middleware that guards protected routes.
//
// SESSION FLOW OVERVIEW:
//  1. Register / login / Google sign-in resolves a user
//  2. The server issues a signed JWT carrying {userId, email, name}
//  3. The JWT travels in the "Record-Signature" cookie (HttpOnly, Secure, SameSite=None)
//  4. On protected routes RequireSession reads the cookie, verifies the JWT,
//     checks the revocation list and the user record, and stores the claims
//     in the request context
//  5. Logout puts the token's hash on the revocation list until it expires
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"userId":"...","email":"...","name":"...","sub":"...","jti":"...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "records-backend"

	// DefaultTokenTTL is the lifetime of a session token and of its cookie.
	DefaultTokenTTL = time.Hour
)

// ErrInvalidToken is returned by Verify for every kind of bad token:
// tampered, expired, wrong issuer, wrong algorithm or missing subject.
// Callers treat it as "not authenticated", never as a server error.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the identity carried by a session token.
//
// The three custom fields mirror what the frontend decodes from the cookie.
// Subject duplicates UserID so standard JWT tooling can read it; ID (jti)
// makes every issued token unique even within the same second.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A zero ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens. The session cookie uses the
// same value for Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for the given identity.
//
// It only fails if the signer is misconfigured, which is a server fault,
// not something the client caused.
func (s *TokenService) Issue(userID, email, name string) (string, error) {
	return s.issueWithDuration(userID, email, name, s.ttl)
}

func (s *TokenService) issueWithDuration(userID, email, name string, d time.Duration) (string, error) {
	now := s.now()

	c := Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired (exp is required)
//   - Issuer is "records-backend"
//   - Algorithm is HS256 (prevents "alg: none" and algorithm confusion)
//
// Any failure is reported as ErrInvalidToken, wrapped with the reason.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	if c.UserID == "" || c.Subject != c.UserID {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c, nil
}
