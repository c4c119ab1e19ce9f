package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/config"
	"github.com/joshijoe05/records-backend/internal/mailer"
	"github.com/joshijoe05/records-backend/internal/model"
	sqliteRepo "github.com/joshijoe05/records-backend/internal/repository/sqlite"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type fakePlaylists struct {
	calls int
	fail  bool
}

func (f *fakePlaylists) PlaylistItems(_ context.Context, id string) ([]model.CourseItem, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("quota exceeded")
	}
	return []model.CourseItem{
		{VideoID: id + "-v1", Title: "One"},
		{VideoID: id + "-v2", Title: "Two", Position: 1},
	}, nil
}

func (f *fakePlaylists) PlaylistDetails(_ context.Context, id string) (*model.CourseMetadata, error) {
	f.calls++
	return &model.CourseMetadata{Title: "Playlist " + id}, nil
}

type testEnv struct {
	handler   http.Handler
	store     *sqliteRepo.DB
	mail      *fakeMailer
	playlists *fakePlaylists
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqliteRepo.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	cfg := &config.Config{
		App: config.App{
			FrontendURL: "https://app.example.com",
			CORSOrigins: []string{"https://app.example.com"},
		},
		Auth: config.Auth{
			JWTSecret:  "test-secret-at-least-16-chars!!",
			TokenTTL:   time.Hour,
			CookieName: auth.DefaultCookieName,
			BcryptCost: 4,
		},
		YouTube: config.YouTube{Timeout: time.Second},
	}

	env := &testEnv{store: store, mail: &fakeMailer{}, playlists: &fakePlaylists{}}
	srv, err := NewWithDeps(cfg, Deps{
		Store:     store,
		Mailer:    env.mail,
		Playlists: env.playlists,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	env.handler = srv.Handler()
	return env
}

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends a request with an optional JSON body and session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body any, session string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Cookie", auth.DefaultCookieName+"="+session)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	res := rec.Result()

	var env envelope
	if rec.Body.Len() > 0 && res.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return res, env
}

func sessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

// signUp registers an account and returns its session token.
func (e *testEnv) signUp(t *testing.T, name, email string) string {
	t.Helper()
	res, env := e.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": name, "email": email, "password": "secret"}, "")
	require.Equal(t, http.StatusCreated, res.StatusCode, env.Message)
	c := sessionCookie(t, res)
	require.NotNil(t, c)
	return c.Value
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	// Register sets a hardened session cookie.
	res, env := e.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "CREATED", env.Status)
	cookie := sessionCookie(t, res)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)

	res, env = e.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret"}, "")
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "User already exist!", env.Message)

	// Wrong password: 401 and no cookie.
	res, env = e.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Invalid Credentials!", env.Message)
	assert.Nil(t, sessionCookie(t, res))

	res, _ = e.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	token := sessionCookie(t, res).Value

	// verify-session
	res, env = e.do(t, http.MethodPost, "/api/auth/verify-session", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", env.Status)
	assert.Empty(t, env.Message)

	res, env = e.do(t, http.MethodPost, "/api/auth/verify-session", nil, token+"tampered")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, env = e.do(t, http.MethodPost, "/api/auth/verify-session", nil, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "ada@example.com", user["email"])
	for _, hidden := range []string{"password", "passwordHash", "PasswordHash", "googleId", "isManualAuth", "createdAt"} {
		assert.NotContains(t, user, hidden)
	}

	// Logout revokes the token everywhere.
	res, _ = e.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	cleared := sessionCookie(t, res)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	res, _ = e.do(t, http.MethodPost, "/api/auth/verify-session", nil, token)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, env = e.do(t, http.MethodGet, "/api/skill", nil, token)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", env.Status)
}

func TestValidationAndMalformedBodies(t *testing.T) {
	e := newTestEnv(t)

	res, env := e.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ada", "email": "nope", "password": "secret"}, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Status)
	assert.Equal(t, "email must be a valid email", env.Message)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	res, env = e.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ghost@example.com", "password": "x"}, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "User Not Found!", env.Message)
}

func TestGoogleSSO(t *testing.T) {
	e := newTestEnv(t)
	body := map[string]string{"name": "G", "email": "g@example.com", "googleId": "g-1", "profilePicture": "https://pic"}

	res, _ := e.do(t, http.MethodPost, "/api/auth/sso/google", body, "")
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.NotNil(t, sessionCookie(t, res))

	res, _ = e.do(t, http.MethodPost, "/api/auth/sso/google", body, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// The redirect flow is not mounted without Google credentials.
	res, _ = e.do(t, http.MethodGet, "/api/auth/google/login", nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestEmailVerification(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	token := e.signUp(t, "Ada", "ada@example.com")
	other := e.signUp(t, "Bob", "bob@example.com")

	// Guarded: no session, no email.
	res, _ := e.do(t, http.MethodPost, "/api/auth/send/verification-email", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, env := e.do(t, http.MethodPost, "/api/auth/send/verification-email", map[string]string{"email": "ada@example.com"}, other)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "FORBIDDEN", env.Status)

	res, env = e.do(t, http.MethodPost, "/api/auth/send/verification-email", map[string]string{"email": "ada@example.com"}, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Verification email sent successfully!", env.Message)
	require.Len(t, e.mail.sent, 1)

	ada, err := e.store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	vt, err := e.store.FindVerificationToken(ctx, ada.ID, model.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Contains(t, e.mail.sent[0].HTML, vt.ID)

	body := map[string]string{"token": vt.ID, "email": "ada@example.com"}
	res, env = e.do(t, http.MethodPost, "/api/auth/verify-email", body, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Email verified successfully!", env.Message)

	res, env = e.do(t, http.MethodPost, "/api/auth/verify-email", body, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Email already verified!", env.Message)
}

func TestPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.signUp(t, "Ada", "ada@example.com")

	res, _ := e.do(t, http.MethodPost, "/api/auth/send/reset-password-email", map[string]string{"email": "ada@example.com"}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	ada, err := e.store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	rt, err := e.store.FindVerificationToken(ctx, ada.ID, model.PurposePasswordReset)
	require.NoError(t, err)

	res, _ = e.do(t, http.MethodPost, "/api/auth/reset-password",
		map[string]string{"email": "ada@example.com", "password": "new-pass", "token": rt.ID}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "new-pass"}, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCourseImport(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "Ada", "ada@example.com")
	other := e.signUp(t, "Bob", "bob@example.com")
	body := map[string]string{"youtubePlayListUrl": "https://www.youtube.com/playlist?list=PLgo"}

	res, env := e.do(t, http.MethodPost, "/api/tools/youtube/course", body, token)
	require.Equal(t, http.StatusCreated, res.StatusCode, env.Message)
	var course model.Course
	require.NoError(t, json.Unmarshal(env.Data, &course))
	assert.Equal(t, "PLgo", course.PlaylistID)
	assert.Equal(t, "Playlist PLgo", course.Metadata.Title)
	assert.Len(t, course.Progress, 2)

	res, env = e.do(t, http.MethodPost, "/api/tools/youtube/course", body, token)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Playlist already exists!", env.Message)

	calls := e.playlists.calls
	res, _ = e.do(t, http.MethodPost, "/api/tools/youtube/course",
		map[string]string{"youtubePlayListUrl": "https://www.youtube.com/watch?v=x"}, token)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, calls, e.playlists.calls, "no external calls for a URL without list=")

	// Progress moves the course out of the not-started list.
	res, env = e.do(t, http.MethodGet, "/api/tools/youtube/course", nil, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []model.Course
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	res, _ = e.do(t, http.MethodPut, "/api/tools/youtube/course/"+course.ID+"/progress",
		map[string]any{"videoId": "PLgo-v1", "isCompleted": true}, token)
	require.Equal(t, http.StatusOK, res.StatusCode)

	_, env = e.do(t, http.MethodGet, "/api/tools/youtube/course", nil, token)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list)

	// Courses are private to their author.
	res, env = e.do(t, http.MethodGet, "/api/tools/youtube/course/"+course.ID, nil, other)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "Course not found!", env.Message)

	res, _ = e.do(t, http.MethodDelete, "/api/tools/youtube/course/"+course.ID, nil, token)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = e.do(t, http.MethodGet, "/api/tools/youtube/course/"+course.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCourseImport_UpstreamFailure(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "Ada", "ada@example.com")
	e.playlists.fail = true

	res, env := e.do(t, http.MethodPost, "/api/tools/youtube/course",
		map[string]string{"youtubePlayListUrl": "https://youtube.com/playlist?list=PLx"}, token)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "ERROR", env.Status)
	assert.Equal(t, "Playlist items fetching failed!", env.Message)
	assert.Equal(t, 1, e.playlists.calls)
}

func TestSkillsAndProfile(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "Ada", "ada@example.com")

	res, env := e.do(t, http.MethodPost, "/api/skill-category", map[string]string{"name": "Languages"}, token)
	require.Equal(t, http.StatusCreated, res.StatusCode, env.Message)
	var category model.SkillCategory
	require.NoError(t, json.Unmarshal(env.Data, &category))

	res, env = e.do(t, http.MethodPost, "/api/skill", map[string]string{
		"name": "Go", "skillCategoryId": category.ID, "imageUrl": "https://img/go.png",
	}, token)
	require.Equal(t, http.StatusCreated, res.StatusCode, env.Message)
	var skill model.Skill
	require.NoError(t, json.Unmarshal(env.Data, &skill))

	res, env = e.do(t, http.MethodPost, "/api/skill", map[string]string{
		"name": "go", "skillCategoryId": category.ID, "imageUrl": "https://img/go.png",
	}, token)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Skill already exists!", env.Message)

	res, _ = e.do(t, http.MethodPut, "/api/user/onboarding", []string{skill.ID}, token)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = e.do(t, http.MethodGet, "/api/user/username-availability?username=ada", nil, token)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = e.do(t, http.MethodPut, "/api/user/username", map[string]string{"username": "ada"}, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, env = e.do(t, http.MethodPut, "/api/user/username", map[string]string{"username": "ada"}, token)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Username already exist!", env.Message)
	res, env = e.do(t, http.MethodGet, "/api/user/username-availability?username=ada", nil, token)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Username already exist!", env.Message)

	ada, err := e.store.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	res, env = e.do(t, http.MethodGet, "/api/user/profile/"+ada.ID, nil, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var profile model.Profile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "ada", profile.Username)
	assert.True(t, profile.IsOnBoardingCompleted)
	require.Len(t, profile.Skills, 1)
	assert.Equal(t, "go", profile.Skills[0].Name)
}

func TestOperationalRoutes(t *testing.T) {
	e := newTestEnv(t)

	res, env := e.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "OK", env.Status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "record_http_requests_total")

	// CORS preflight from the frontend is answered with credentials allowed.
	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
