package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

// ErrNoSession means the caller is not authenticated: no cookie, a bad or
// expired token, a logged-out token, or a missing/inactive user. Any other
// error from Resolve is an infrastructure fault.
var ErrNoSession = errors.New("auth: no valid session")

// UserLookup is the slice of the user repository sessions need.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RevocationList stores hashes of logged-out tokens until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// TokenHash is the key under which a raw token is revoked. Storing a hash
// keeps live credentials out of the revocation store.
func TokenHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SessionVerifier turns a raw session token into an authenticated identity.
// It is shared by the RequireSession middleware and the verify-session
// endpoint so both apply exactly the same checks.
type SessionVerifier struct {
	tokens  *TokenService
	revoked RevocationList
	users   UserLookup
}

func NewSessionVerifier(tokens *TokenService, revoked RevocationList, users UserLookup) *SessionVerifier {
	return &SessionVerifier{tokens: tokens, revoked: revoked, users: users}
}

// Resolve verifies the token, checks it has not been revoked and loads its
// user, which must exist and be active.
func (v *SessionVerifier) Resolve(ctx context.Context, raw string) (*Claims, *model.User, error) {
	if raw == "" {
		return nil, nil, ErrNoSession
	}

	claims, err := v.tokens.Verify(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	revoked, err := v.revoked.IsRevoked(ctx, TokenHash(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("auth: checking revocation list: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: token was logged out", ErrNoSession)
	}

	user, err := v.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user %s no longer exists", ErrNoSession, claims.UserID)
		}
		return nil, nil, fmt.Errorf("auth: loading session user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, fmt.Errorf("%w: user %s is inactive", ErrNoSession, claims.UserID)
	}

	return claims, user, nil
}

// Revoke puts a raw token on the revocation list until its own expiry.
// Tokens that no longer verify are already unusable and are ignored.
func (v *SessionVerifier) Revoke(ctx context.Context, raw string) error {
	claims, err := v.tokens.Verify(raw)
	if err != nil {
		return nil
	}
	return v.revoked.Revoke(ctx, TokenHash(raw), claims.ExpiresAt.Time)
}
