package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

// newTestDB returns a fresh in-memory database with all migrations applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$04$hash",
		IsActive:     true,
		IsManualAuth: true,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func createTestCategory(t *testing.T, db *DB, name string) *model.SkillCategory {
	t.Helper()
	c := &model.SkillCategory{ID: uuid.NewString(), Name: name}
	if err := db.CreateSkillCategory(context.Background(), c); err != nil {
		t.Fatalf("CreateSkillCategory() error = %v", err)
	}
	return c
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := migrate(context.Background(), db.conn); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

// =========================================================================
// USERS
// =========================================================================

func TestUserCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "ann@example.com")

	if u.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set CreatedAt")
	}

	byID, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Email != "ann@example.com" || !byID.IsActive || !byID.IsManualAuth {
		t.Errorf("GetUserByID() = %+v", byID)
	}
	if byID.Username != "" {
		t.Errorf("Username = %q, want empty", byID.Username)
	}
	if byID.Skills == nil || len(byID.Skills) != 0 {
		t.Errorf("Skills = %#v, want empty non-nil slice", byID.Skills)
	}

	byEmail, err := db.GetUserByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetUserByEmail() ID = %s, want %s", byEmail.ID, u.ID)
	}
}

func TestUserGet_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUserByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserCreate_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	err := db.CreateUser(context.Background(), &model.User{
		ID: uuid.NewString(), Name: "Other", Email: "dup@example.com",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserUpdate_UsernameUniqueness(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")

	// Two users without a username do not collide.
	taken, err := db.UsernameTaken(ctx, "ann")
	if err != nil || taken {
		t.Fatalf("UsernameTaken() = %v, %v; want false, nil", taken, err)
	}

	a.Username = "ann"
	a.IsUsernameUpdated = true
	if err := db.UpdateUser(ctx, a); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	taken, err = db.UsernameTaken(ctx, "ann")
	if err != nil || !taken {
		t.Fatalf("UsernameTaken() = %v, %v; want true, nil", taken, err)
	}

	b.Username = "ann"
	err = db.UpdateUser(ctx, b)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateUser() error = %v, want ErrConflict", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Message != "username conflict with id ann" {
		t.Errorf("UpdateUser() conflict = %v, want the generic repository conflict", err)
	}

	got, _ := db.GetUserByID(ctx, a.ID)
	if got.Username != "ann" || !got.IsUsernameUpdated {
		t.Errorf("stored user = %+v", got)
	}
}

func TestUserUpdate_Missing(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateUser(context.Background(), &model.User{ID: "ghost", Email: "g@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestGetProfile_JoinsSkillsInOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "p@example.com")
	cat := createTestCategory(t, db, "languages")

	goSkill := &model.Skill{ID: uuid.NewString(), Name: "go", CategoryID: cat.ID, ImageURL: "go.png"}
	rust := &model.Skill{ID: uuid.NewString(), Name: "rust", CategoryID: cat.ID}
	for _, s := range []*model.Skill{goSkill, rust} {
		if err := db.CreateSkill(ctx, s); err != nil {
			t.Fatalf("CreateSkill() error = %v", err)
		}
	}

	u.Skills = []string{rust.ID, "dangling", goSkill.ID}
	u.IsOnBoardingCompleted = true
	if err := db.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	p, err := db.GetProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !p.IsOnBoardingCompleted {
		t.Error("profile should be onboarded")
	}
	if len(p.Skills) != 2 || p.Skills[0].Name != "rust" || p.Skills[1].Name != "go" {
		t.Fatalf("profile skills = %+v, want [rust go]", p.Skills)
	}
	if p.Skills[1].ImageURL != "go.png" {
		t.Errorf("ImageURL = %q", p.Skills[1].ImageURL)
	}

	if _, err := db.GetProfile(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfile(ghost) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VERIFICATION TOKENS
// =========================================================================

func TestVerificationTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "v@example.com")

	tok := &model.VerificationToken{ID: uuid.NewString(), UserID: u.ID, Purpose: model.PurposeEmailVerification}
	if err := db.CreateVerificationToken(ctx, tok); err != nil {
		t.Fatalf("CreateVerificationToken() error = %v", err)
	}

	// One pending token per (user, purpose).
	dup := &model.VerificationToken{ID: uuid.NewString(), UserID: u.ID, Purpose: model.PurposeEmailVerification}
	if err := db.CreateVerificationToken(ctx, dup); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate CreateVerificationToken() error = %v, want ErrConflict", err)
	}

	// A different purpose is independent.
	reset := &model.VerificationToken{ID: uuid.NewString(), UserID: u.ID, Purpose: model.PurposePasswordReset}
	if err := db.CreateVerificationToken(ctx, reset); err != nil {
		t.Fatalf("CreateVerificationToken(reset) error = %v", err)
	}

	found, err := db.FindVerificationToken(ctx, u.ID, model.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("FindVerificationToken() error = %v", err)
	}
	if found.ID != tok.ID || found.Purpose != model.PurposeEmailVerification {
		t.Errorf("FindVerificationToken() = %+v", found)
	}

	got, err := db.GetVerificationToken(ctx, reset.ID)
	if err != nil || got.UserID != u.ID {
		t.Fatalf("GetVerificationToken() = %+v, %v", got, err)
	}

	if err := db.DeleteVerificationToken(ctx, tok.ID); err != nil {
		t.Fatalf("DeleteVerificationToken() error = %v", err)
	}
	if _, err := db.GetVerificationToken(ctx, tok.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("token should be gone, got %v", err)
	}
	if err := db.DeleteVerificationToken(ctx, tok.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// REVOCATION LIST
// =========================================================================

func TestRevocation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	revoked, err := db.IsRevoked(ctx, "h1")
	if err != nil || revoked {
		t.Fatalf("IsRevoked(unknown) = %v, %v", revoked, err)
	}

	if err := db.Revoke(ctx, "h1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	// Revoking twice is harmless.
	if err := db.Revoke(ctx, "h1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke() error = %v", err)
	}
	if revoked, _ := db.IsRevoked(ctx, "h1"); !revoked {
		t.Error("IsRevoked(h1) = false, want true")
	}

	if err := db.Revoke(ctx, "h2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke(expired) error = %v", err)
	}
	if revoked, _ := db.IsRevoked(ctx, "h2"); revoked {
		t.Error("an expired entry must not count as revoked")
	}
}

// =========================================================================
// SKILLS
// =========================================================================

func TestSkills(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	langs := createTestCategory(t, db, "languages")
	tools := createTestCategory(t, db, "tools")

	if err := db.CreateSkillCategory(ctx, &model.SkillCategory{ID: uuid.NewString(), Name: "tools"}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate category error = %v, want ErrConflict", err)
	}

	got, err := db.GetSkillCategory(ctx, langs.ID)
	if err != nil || got.Name != "languages" {
		t.Fatalf("GetSkillCategory() = %+v, %v", got, err)
	}
	if _, err := db.GetSkillCategory(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSkillCategory(missing) error = %v", err)
	}

	cats, err := db.ListSkillCategories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("ListSkillCategories() = %v, %v", cats, err)
	}

	for _, s := range []*model.Skill{
		{ID: uuid.NewString(), Name: "go", CategoryID: langs.ID},
		{ID: uuid.NewString(), Name: "docker", CategoryID: tools.ID},
		{ID: uuid.NewString(), Name: "c", CategoryID: langs.ID},
	} {
		if err := db.CreateSkill(ctx, s); err != nil {
			t.Fatalf("CreateSkill(%s) error = %v", s.Name, err)
		}
	}

	if err := db.CreateSkill(ctx, &model.Skill{ID: uuid.NewString(), Name: "go", CategoryID: tools.ID}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate skill error = %v, want ErrConflict", err)
	}
	if err := db.CreateSkill(ctx, &model.Skill{ID: uuid.NewString(), Name: "zig", CategoryID: "nope"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("skill with unknown category error = %v, want ErrNotFound", err)
	}

	all, err := db.ListSkills(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("ListSkills() = %v, %v", all, err)
	}
	if all[0].Name != "c" {
		t.Errorf("ListSkills() not sorted by name: %+v", all)
	}

	onlyLangs, err := db.ListSkills(ctx, langs.ID)
	if err != nil || len(onlyLangs) != 2 {
		t.Fatalf("ListSkills(langs) = %v, %v", onlyLangs, err)
	}
	for _, s := range onlyLangs {
		if s.CategoryID != langs.ID {
			t.Errorf("ListSkills(langs) returned %+v", s)
		}
	}
}

// =========================================================================
// COURSES
// =========================================================================

func newTestCourse(authorID, playlistID string) *model.Course {
	return &model.Course{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		PlaylistID: playlistID,
		Metadata:   &model.CourseMetadata{Title: "Go in depth", ChannelTitle: "gophers"},
		Content: []model.CourseItem{
			{VideoID: "v1", Title: "Intro", Position: 0},
			{VideoID: "v2", Title: "Types", Position: 1},
		},
		Progress: []model.VideoProgress{{VideoID: "v1"}, {VideoID: "v2"}},
	}
}

func TestCourses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ann := createTestUser(t, db, "ann@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	c := newTestCourse(ann.ID, "PL1")
	if err := db.CreateCourse(ctx, c); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}

	if err := db.CreateCourse(ctx, newTestCourse(ann.ID, "PL1")); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate CreateCourse() error = %v, want ErrConflict", err)
	}
	// Another author may import the same playlist.
	if err := db.CreateCourse(ctx, newTestCourse(bob.ID, "PL1")); err != nil {
		t.Fatalf("CreateCourse(bob) error = %v", err)
	}

	exists, err := db.CourseExists(ctx, ann.ID, "PL1")
	if err != nil || !exists {
		t.Fatalf("CourseExists() = %v, %v", exists, err)
	}
	exists, _ = db.CourseExists(ctx, ann.ID, "PL2")
	if exists {
		t.Error("CourseExists(PL2) = true")
	}

	got, err := db.GetCourse(ctx, ann.ID, c.ID)
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if got.Metadata == nil || got.Metadata.Title != "Go in depth" || len(got.Content) != 2 || len(got.Progress) != 2 {
		t.Errorf("GetCourse() = %+v", got)
	}
	if _, err := db.GetCourse(ctx, bob.ID, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCourse by another author error = %v, want ErrNotFound", err)
	}

	got.SetProgress("v2", true)
	if err := db.UpdateCourseProgress(ctx, got); err != nil {
		t.Fatalf("UpdateCourseProgress() error = %v", err)
	}
	again, _ := db.GetCourse(ctx, ann.ID, c.ID)
	if !again.Progress[1].IsCompleted || again.Progress[0].IsCompleted {
		t.Errorf("progress after update = %+v", again.Progress)
	}

	list, err := db.ListCourses(ctx, ann.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListCourses() = %v, %v", list, err)
	}

	if err := db.DeleteCourse(ctx, bob.ID, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteCourse by another author error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteCourse(ctx, ann.ID, c.ID); err != nil {
		t.Fatalf("DeleteCourse() error = %v", err)
	}
	if _, err := db.GetCourse(ctx, ann.ID, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted course still found: %v", err)
	}
}

func TestCourse_NullMetadata(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "n@example.com")

	c := newTestCourse(u.ID, "PLX")
	c.Metadata = nil
	c.Content = nil
	c.Progress = nil
	if err := db.CreateCourse(ctx, c); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}

	got, err := db.GetCourse(ctx, u.ID, c.ID)
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if got.Metadata != nil {
		t.Errorf("Metadata = %+v, want nil", got.Metadata)
	}
	if got.Content == nil || len(got.Content) != 0 {
		t.Errorf("Content = %#v, want empty slice", got.Content)
	}
}
