// Package repository declares the storage contracts used by the services.
//
// Implementations live in the sqlite and mongo subpackages (plus redis for
// the revocation list). Every implementation translates its own "no rows"
// result into apperror.ErrNotFound and its duplicate-key errors into
// apperror.ErrConflict, so services never see driver errors.
package repository

import (
	"context"
	"time"

	"github.com/joshijoe05/records-backend/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// UpdateUser overwrites every mutable field of the stored user.
	UpdateUser(ctx context.Context, user *model.User) error
	// GetProfile returns the public profile with skills resolved.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

type VerificationTokenRepository interface {
	CreateVerificationToken(ctx context.Context, token *model.VerificationToken) error
	GetVerificationToken(ctx context.Context, id string) (*model.VerificationToken, error)
	// FindVerificationToken returns the pending token of a user for a purpose.
	FindVerificationToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.VerificationToken, error)
	DeleteVerificationToken(ctx context.Context, id string) error
}

type SkillRepository interface {
	CreateSkillCategory(ctx context.Context, category *model.SkillCategory) error
	GetSkillCategory(ctx context.Context, id string) (*model.SkillCategory, error)
	ListSkillCategories(ctx context.Context) ([]model.SkillCategory, error)
	CreateSkill(ctx context.Context, skill *model.Skill) error
	// ListSkills returns all skills, or only one category's when categoryID is set.
	ListSkills(ctx context.Context, categoryID string) ([]model.Skill, error)
}

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	CourseExists(ctx context.Context, authorID, playlistID string) (bool, error)
	GetCourse(ctx context.Context, authorID, courseID string) (*model.Course, error)
	// ListCourses returns the author's courses, newest first.
	ListCourses(ctx context.Context, authorID string) ([]model.Course, error)
	DeleteCourse(ctx context.Context, authorID, courseID string) error
	UpdateCourseProgress(ctx context.Context, course *model.Course) error
}

// RevocationStore keeps hashes of logged-out session tokens until expiresAt.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// Store is a primary document store: everything but an optional external
// revocation list.
type Store interface {
	UserRepository
	VerificationTokenRepository
	SkillRepository
	CourseRepository
	RevocationStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
