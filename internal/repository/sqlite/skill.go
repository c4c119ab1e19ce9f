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

// CreateSkillCategory inserts a category; the name must already be normalized.
func (db *DB) CreateSkillCategory(ctx context.Context, category *model.SkillCategory) error {
	category.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO skill_categories (id, name, created_at) VALUES (?, ?, ?)`,
		category.ID, category.Name, category.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("skill category", category.Name)
		}
		return fmt.Errorf("sqlite: inserting skill category: %w", err)
	}
	return nil
}

func (db *DB) GetSkillCategory(ctx context.Context, id string) (*model.SkillCategory, error) {
	var c model.SkillCategory
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM skill_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("skill category", id)
		}
		return nil, fmt.Errorf("sqlite: getting skill category %s: %w", id, err)
	}
	return &c, nil
}

func (db *DB) ListSkillCategories(ctx context.Context) ([]model.SkillCategory, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at FROM skill_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing skill categories: %w", err)
	}
	defer rows.Close()

	categories := []model.SkillCategory{}
	for rows.Next() {
		var c model.SkillCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning skill category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating skill categories: %w", err)
	}
	return categories, nil
}

// CreateSkill inserts a skill. An unknown category fails the foreign key and
// is reported as NotFound.
func (db *DB) CreateSkill(ctx context.Context, skill *model.Skill) error {
	skill.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO skills (id, name, category_id, image_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		skill.ID, skill.Name, skill.CategoryID, skill.ImageURL, skill.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("skill", skill.Name)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("skill category", skill.CategoryID)
		}
		return fmt.Errorf("sqlite: inserting skill: %w", err)
	}
	return nil
}

func (db *DB) ListSkills(ctx context.Context, categoryID string) ([]model.Skill, error) {
	query := `SELECT id, name, category_id, image_url, created_at FROM skills`
	var args []any
	if categoryID != "" {
		query += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing skills: %w", err)
	}
	defer rows.Close()

	return collectSkills(rows)
}

// collectSkills scans skill rows; the caller closes rows.
func collectSkills(rows *sql.Rows) ([]model.Skill, error) {
	skills := []model.Skill{}
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID, &s.ImageURL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning skill: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating skills: %w", err)
	}
	return skills, nil
}
