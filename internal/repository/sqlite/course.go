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

const courseColumns = `id, author_id, playlist_id, metadata, content, progress, created_at, updated_at`

func scanCourse(row rowScanner) (*model.Course, error) {
	var (
		c                 model.Course
		metadata          sql.NullString
		content, progress string
	)
	if err := row.Scan(&c.ID, &c.AuthorID, &c.PlaylistID, &metadata, &content, &progress, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of course %s: %w", c.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(content), &c.Content); err != nil {
		return nil, fmt.Errorf("decoding content of course %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(progress), &c.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress of course %s: %w", c.ID, err)
	}
	return &c, nil
}

// CreateCourse persists the whole aggregate in one statement. A second
// course for the same (author, playlist) is a Conflict.
func (db *DB) CreateCourse(ctx context.Context, course *model.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	var metadata sql.NullString
	if course.Metadata != nil {
		b, err := json.Marshal(course.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: encoding course metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	content, err := marshalList(course.Content)
	if err != nil {
		return fmt.Errorf("sqlite: encoding course content: %w", err)
	}
	progress, err := marshalList(course.Progress)
	if err != nil {
		return fmt.Errorf("sqlite: encoding course progress: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		course.ID, course.AuthorID, course.PlaylistID, metadata, content, progress,
		course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("course", course.PlaylistID)
		}
		return fmt.Errorf("sqlite: inserting course: %w", err)
	}
	return nil
}

func (db *DB) CourseExists(ctx context.Context, authorID, playlistID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM courses WHERE author_id = ? AND playlist_id = ?`,
		authorID, playlistID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking course: %w", err)
	}
	return n > 0, nil
}

// GetCourse only finds courses owned by authorID.
func (db *DB) GetCourse(ctx context.Context, authorID, courseID string) (*model.Course, error) {
	c, err := scanCourse(db.conn.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = ? AND author_id = ?`,
		courseID, authorID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("course", courseID)
		}
		return nil, fmt.Errorf("sqlite: getting course %s: %w", courseID, err)
	}
	return c, nil
}

func (db *DB) ListCourses(ctx context.Context, authorID string) ([]model.Course, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE author_id = ? ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing courses: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning course: %w", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating courses: %w", err)
	}
	return courses, nil
}

func (db *DB) DeleteCourse(ctx context.Context, authorID, courseID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM courses WHERE id = ? AND author_id = ?`, courseID, authorID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting course %s: %w", courseID, err)
	}
	return expectOneRow(res, "course", courseID)
}

// UpdateCourseProgress writes back the progress list only.
func (db *DB) UpdateCourseProgress(ctx context.Context, course *model.Course) error {
	course.UpdatedAt = time.Now().UTC()

	progress, err := marshalList(course.Progress)
	if err != nil {
		return fmt.Errorf("sqlite: encoding course progress: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE courses SET progress = ?, updated_at = ? WHERE id = ? AND author_id = ?`,
		progress, course.UpdatedAt, course.ID, course.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating course %s: %w", course.ID, err)
	}
	return expectOneRow(res, "course", course.ID)
}

// marshalList encodes a slice as JSON, writing nil as [] rather than null.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}

func expectOneRow(res sql.Result, resource, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
