package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Revoke records a logged-out token hash until expiresAt. Expired entries
// are purged on the way in, so the table stays bounded by the number of
// live sessions that were logged out.
func (db *DB) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	now := time.Now().UTC()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now,
	); err != nil {
		return fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_hash, expires_at) VALUES (?, ?)
		 ON CONFLICT(token_hash) DO UPDATE SET expires_at = excluded.expires_at`,
		tokenHash, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the hash is on the list and not yet expired.
func (db *DB) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var expiresAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT expires_at FROM revoked_tokens WHERE token_hash = ?`, tokenHash,
	).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking revoked token: %w", err)
	}
	return time.Now().Before(expiresAt), nil
}
