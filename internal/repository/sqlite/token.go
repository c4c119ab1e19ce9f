package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

// CreateVerificationToken stores a pending token. A second pending token for
// the same (user, purpose) is a Conflict.
func (db *DB) CreateVerificationToken(ctx context.Context, token *model.VerificationToken) error {
	token.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO verification_tokens (id, user_id, purpose, created_at) VALUES (?, ?, ?, ?)`,
		token.ID, token.UserID, string(token.Purpose), token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("verification token", token.UserID)
		}
		return fmt.Errorf("sqlite: inserting verification token: %w", err)
	}
	return nil
}

func (db *DB) GetVerificationToken(ctx context.Context, id string) (*model.VerificationToken, error) {
	return db.scanToken(ctx, id,
		`SELECT id, user_id, purpose, created_at FROM verification_tokens WHERE id = ?`, id)
}

func (db *DB) FindVerificationToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.VerificationToken, error) {
	return db.scanToken(ctx, userID,
		`SELECT id, user_id, purpose, created_at FROM verification_tokens
		 WHERE user_id = ? AND purpose = ?`, userID, string(purpose))
}

func (db *DB) scanToken(ctx context.Context, key, query string, args ...any) (*model.VerificationToken, error) {
	var (
		t       model.VerificationToken
		purpose string
	)
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.UserID, &purpose, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("verification token", key)
		}
		return nil, fmt.Errorf("sqlite: getting verification token: %w", err)
	}
	t.Purpose = model.TokenPurpose(purpose)
	return &t, nil
}

// DeleteVerificationToken consumes a token. Deleting a missing token is NotFound.
func (db *DB) DeleteVerificationToken(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM verification_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting verification token %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("verification token", id)
	}
	return nil
}
