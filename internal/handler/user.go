package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/service"
)

// UserHandler serves the profile endpoints. Every route sits behind
// auth.RequireSession.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// sessionUserID reads the id the session guard stored in the context. It
// writes a 401 itself when the route was mounted without the guard.
func sessionUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, "", nil)
	}
	return userID, ok
}

// HandleUsernameAvailability reports whether a username is still free.
//
// HTTP: GET /user/username-availability?username=ada
func (h *UserHandler) HandleUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	if err := h.users.UsernameAvailability(r.Context(), r.URL.Query().Get("username")); err != nil {
		writeError(w, h.logger, "handleUsernameAvailability", err)
		return
	}
	respond(w, http.StatusOK, service.MsgUsernameAvailable, nil)
}

// HandleProfile returns any user's public profile.
//
// HTTP: GET /user/profile/{userId}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, "handleProfile", err)
		return
	}
	respond(w, http.StatusOK, "", profile)
}

type usernameRequest struct {
	Username string `json:"username"`
}

// HandleUpdateUsername claims a username for the signed-in user.
//
// HTTP: PUT /user/username  {"username"}
func (h *UserHandler) HandleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var in usernameRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleUpdateUsername", err)
		return
	}

	if err := h.users.UpdateUsername(r.Context(), userID, in.Username); err != nil {
		writeError(w, h.logger, "handleUpdateUsername", err)
		return
	}
	respond(w, http.StatusOK, service.MsgUserUpdated, nil)
}

// HandleOnboarding stores the skills picked during onboarding.
//
// HTTP: PUT /user/onboarding  ["skillId", ...]
func (h *UserHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var skills []string
	if err := decodeJSON(w, r, &skills); err != nil {
		writeError(w, h.logger, "handleOnboarding", err)
		return
	}

	if err := h.users.Onboarding(r.Context(), userID, skills); err != nil {
		writeError(w, h.logger, "handleOnboarding", err)
		return
	}
	respond(w, http.StatusOK, service.MsgUserUpdated, nil)
}
