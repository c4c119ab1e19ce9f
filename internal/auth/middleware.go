package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the session claims.
type contextKey string

const claimsKey contextKey = "sessionClaims"

// unauthorizedBody matches the API's response envelope.
const unauthorizedBody = `{"status":"UNAUTHORIZED","code":401}`

// RequireSession guards protected routes.
//
// The request passes only if ALL of these hold, checked in order:
//  1. a Cookie header is present
//  2. it contains a non-empty session cookie
//  3. the token verifies (signature, issuer, expiry)
//  4. the token is not on the revocation list
//  5. its user exists and is active
//
// Otherwise the chain stops with 401 and the downstream handler never runs.
// Store faults while checking also answer 401 (logged at error level): the
// guard never lets an unverified request through.
//
// On success the claims are stored in the request context and nothing is
// written to the response; the response belongs to the downstream handler.
func RequireSession(cookies *CookieCodec, sessions *SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := cookies.FromRequest(r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			claims, _, err := sessions.Resolve(r.Context(), raw)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					logger.Error("session guard: resolving session",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying the session claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims stored by RequireSession.
// ok is false on routes that are not guarded.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext is a shortcut for the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
