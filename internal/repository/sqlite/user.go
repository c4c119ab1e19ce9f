package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

const userColumns = `id, name, username, email, password_hash, google_id, profile_picture,
	is_active, is_email_verified, is_manual_auth, is_username_updated, is_onboarding_completed,
	skills, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		username sql.NullString
		skills   string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&username,
		&u.Email,
		&u.PasswordHash,
		&u.GoogleID,
		&u.ProfilePicture,
		&u.IsActive,
		&u.IsEmailVerified,
		&u.IsManualAuth,
		&u.IsUsernameUpdated,
		&u.IsOnBoardingCompleted,
		&skills,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	if err := json.Unmarshal([]byte(skills), &u.Skills); err != nil {
		return nil, fmt.Errorf("decoding skills of user %s: %w", u.ID, err)
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return &u, nil
}

// nullable maps "" to NULL so the UNIQUE index on username ignores users
// that have not picked one yet.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	return string(b), err
}

// CreateUser inserts a user. The caller assigns the ID; timestamps are set
// here. A duplicate email or username is reported as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	skills, err := encodeSkills(user.Skills)
	if err != nil {
		return fmt.Errorf("sqlite: encoding skills: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		nullable(user.Username),
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.ProfilePicture,
		boolToInt(user.IsActive),
		boolToInt(user.IsEmailVerified),
		boolToInt(user.IsManualAuth),
		boolToInt(user.IsUsernameUpdated),
		boolToInt(user.IsOnBoardingCompleted),
		skills,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username: %w", err)
	}
	return n > 0, nil
}

// UpdateUser overwrites the mutable fields. ID, email and created_at never change.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	skills, err := encodeSkills(user.Skills)
	if err != nil {
		return fmt.Errorf("sqlite: encoding skills: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET
			name = ?, username = ?, password_hash = ?, google_id = ?, profile_picture = ?,
			is_active = ?, is_email_verified = ?, is_manual_auth = ?, is_username_updated = ?,
			is_onboarding_completed = ?, skills = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		nullable(user.Username),
		user.PasswordHash,
		user.GoogleID,
		user.ProfilePicture,
		boolToInt(user.IsActive),
		boolToInt(user.IsEmailVerified),
		boolToInt(user.IsManualAuth),
		boolToInt(user.IsUsernameUpdated),
		boolToInt(user.IsOnBoardingCompleted),
		skills,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// GetProfile joins the user's skill ids against the skills table, keeping
// the order the user chose. Ids that no longer resolve are skipped.
func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	u, err := db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.name, s.category_id, s.image_url, s.created_at
		 FROM users u, json_each(u.skills) j
		 JOIN skills s ON s.id = j.value
		 WHERE u.id = ?
		 ORDER BY j.key`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading profile skills: %w", err)
	}
	defer rows.Close()

	skills, err := collectSkills(rows)
	if err != nil {
		return nil, err
	}

	return &model.Profile{
		UserID:                u.ID,
		Username:              u.Username,
		ProfilePicture:        u.ProfilePicture,
		IsOnBoardingCompleted: u.IsOnBoardingCompleted,
		Skills:                skills,
	}, nil
}
