package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/mailer"
	"github.com/joshijoe05/records-backend/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// memStore is an in-memory implementation of the repository interfaces.
// It mirrors the unique indexes of the real stores so the conflict paths
// of the services can be exercised. Set err to simulate a storage fault.
type memStore struct {
	mu         sync.Mutex
	users      map[string]*model.User
	tokens     map[string]*model.VerificationToken
	categories map[string]*model.SkillCategory
	skills     map[string]*model.Skill
	courses    map[string]*model.Course
	revoked    map[string]time.Time

	err error
	// createUserConflict makes the next CreateUser fail as if another
	// request had inserted the same email in between.
	createUserConflict *model.User
	// updateUserErr makes every UpdateUser fail with it.
	updateUserErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*model.User{},
		tokens:     map[string]*model.VerificationToken{},
		categories: map[string]*model.SkillCategory{},
		skills:     map[string]*model.Skill{},
		courses:    map[string]*model.Course{},
		revoked:    map[string]time.Time{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if winner := m.createUserConflict; winner != nil {
		m.createUserConflict = nil
		cp := *winner
		m.users[cp.ID] = &cp
		return apperror.Conflict("user", u.Email)
	}
	for _, existing := range m.users {
		if existing.Email == u.Email || (u.Username != "" && existing.Username == u.Username) {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.updateUserErr != nil {
		return m.updateUserErr
	}
	if _, ok := m.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	for id, other := range m.users {
		if id != u.ID && u.Username != "" && other.Username == u.Username {
			return apperror.Conflict("username", u.Username)
		}
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	u, err := m.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	skills := []model.Skill{}
	for _, id := range u.Skills {
		if s, ok := m.skills[id]; ok {
			skills = append(skills, *s)
		}
	}
	return &model.Profile{
		UserID:                u.ID,
		Username:              u.Username,
		ProfilePicture:        u.ProfilePicture,
		IsOnBoardingCompleted: u.IsOnBoardingCompleted,
		Skills:                skills,
	}, nil
}

func (m *memStore) CreateVerificationToken(_ context.Context, t *model.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.tokens {
		if existing.UserID == t.UserID && existing.Purpose == t.Purpose {
			return apperror.Conflict("verification token", t.UserID)
		}
	}
	t.CreatedAt = time.Now()
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memStore) GetVerificationToken(_ context.Context, id string) (*model.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tokens[id]
	if !ok {
		return nil, apperror.NotFound("verification token", id)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) FindVerificationToken(_ context.Context, userID string, purpose model.TokenPurpose) (*model.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("verification token", userID)
}

func (m *memStore) DeleteVerificationToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tokens[id]; !ok {
		return apperror.NotFound("verification token", id)
	}
	delete(m.tokens, id)
	return nil
}

func (m *memStore) CreateSkillCategory(_ context.Context, c *model.SkillCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return apperror.Conflict("skill category", c.Name)
		}
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memStore) GetSkillCategory(_ context.Context, id string) (*model.SkillCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.categories[id]
	if !ok {
		return nil, apperror.NotFound("skill category", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListSkillCategories(_ context.Context) ([]model.SkillCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.SkillCategory
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CreateSkill(_ context.Context, s *model.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.categories[s.CategoryID]; !ok {
		return apperror.NotFound("skill category", s.CategoryID)
	}
	for _, existing := range m.skills {
		if existing.Name == s.Name {
			return apperror.Conflict("skill", s.Name)
		}
	}
	cp := *s
	m.skills[s.ID] = &cp
	return nil
}

func (m *memStore) ListSkills(_ context.Context, categoryID string) ([]model.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Skill
	for _, s := range m.skills {
		if categoryID == "" || s.CategoryID == categoryID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CreateCourse(_ context.Context, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.courses {
		if existing.AuthorID == c.AuthorID && existing.PlaylistID == c.PlaylistID {
			return apperror.Conflict("course", c.PlaylistID)
		}
	}
	// Strictly increasing so newest-first ordering is deterministic.
	c.CreatedAt = time.Now().Add(time.Duration(len(m.courses)) * time.Millisecond)
	c.UpdatedAt = c.CreatedAt
	cp := *c
	cp.Progress = append([]model.VideoProgress(nil), c.Progress...)
	m.courses[c.ID] = &cp
	return nil
}

func (m *memStore) CourseExists(_ context.Context, authorID, playlistID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, c := range m.courses {
		if c.AuthorID == authorID && c.PlaylistID == playlistID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetCourse(_ context.Context, authorID, courseID string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.courses[courseID]
	if !ok || c.AuthorID != authorID {
		return nil, apperror.NotFound("course", courseID)
	}
	cp := *c
	cp.Progress = append([]model.VideoProgress(nil), c.Progress...)
	return &cp, nil
}

func (m *memStore) ListCourses(_ context.Context, authorID string) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Course
	for _, c := range m.courses {
		if c.AuthorID == authorID {
			cp := *c
			cp.Progress = append([]model.VideoProgress(nil), c.Progress...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteCourse(_ context.Context, authorID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.courses[courseID]
	if !ok || c.AuthorID != authorID {
		return apperror.NotFound("course", courseID)
	}
	delete(m.courses, courseID)
	return nil
}

func (m *memStore) UpdateCourseProgress(_ context.Context, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stored, ok := m.courses[c.ID]
	if !ok || stored.AuthorID != c.AuthorID {
		return apperror.NotFound("course", c.ID)
	}
	stored.Progress = append([]model.VideoProgress(nil), c.Progress...)
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) Revoke(_ context.Context, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[hash] = expiresAt
	return nil
}

func (m *memStore) IsRevoked(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	exp, ok := m.revoked[hash]
	return ok && time.Now().Before(exp), nil
}

// fakeMailer records every message and fails when err is set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last(t *testing.T) mailer.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no email was sent")
	return f.sent[len(f.sent)-1]
}

var errStoreDown = errors.New("store is down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authFixture wires an AuthService to a memStore and a fakeMailer.
type authFixture struct {
	svc    *AuthService
	store  *memStore
	mail   *fakeMailer
	tokens *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	store := newMemStore()
	mail := &fakeMailer{}
	sessions := auth.NewSessionVerifier(tokens, store, store)

	// Cost 4 is the bcrypt minimum and keeps the tests fast.
	svc := NewAuthService(store, store, tokens, auth.NewPasswordService(4), sessions, mail,
		"https://app.example.com/", discardLogger())

	return &authFixture{svc: svc, store: store, mail: mail, tokens: tokens}
}

// register creates a password account and returns it.
func (f *authFixture) register(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}
