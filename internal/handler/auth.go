// Package handler contains the HTTP request handlers of the API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements http.Handler. Chi
// accepts plain http.HandlerFunc values, so every handler here is a method
// with the (w, r) signature.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query, JSON body)
//  2. Call the service that owns the rule
//  3. Write the response envelope (see response.go)
//
// Handlers should NOT contain business logic. They are the glue between
// HTTP and the services.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler exposes registration, login, sessions, email verification and
// password reset over HTTP.
//
// HANDLER RESPONSIBILITIES:
//   - decode the request body
//   - call AuthService, which owns every business rule
//   - set or clear the session cookie on the way out
//
// DEPENDENCY CHAIN:
//   - auth    *service.AuthService   → business rules
//   - cookies *auth.CookieCodec      → session cookie format
//   - google  *auth.GoogleProvider   → server-side OAuth flow (nil when not configured)
type AuthHandler struct {
	auth        *service.AuthService
	cookies     *auth.CookieCodec
	tokens      *auth.TokenService
	google      *auth.GoogleProvider
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil, in which case the
// redirect routes are not mounted.
func NewAuthHandler(
	authService *service.AuthService,
	cookies *auth.CookieCodec,
	tokens *auth.TokenService,
	google *auth.GoogleProvider,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        authService,
		cookies:     cookies,
		tokens:      tokens,
		google:      google,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// GoogleEnabled reports whether the redirect flow can be served.
func (h *AuthHandler) GoogleEnabled() bool {
	return h.google != nil
}

// HandleRegister creates a password account and signs it in.
//
// HTTP: POST /auth/register  {"name", "email", "password"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleRegister", err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, "handleRegister", err)
		return
	}

	h.cookies.Attach(w, res.Token, h.tokens.TTL())
	respond(w, http.StatusCreated, "", nil)
}

// HandleLogin checks the password and sets the session cookie.
//
// HTTP: POST /auth/login  {"email", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleLogin", err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, "handleLogin", err)
		return
	}

	h.cookies.Attach(w, res.Token, h.tokens.TTL())
	respond(w, http.StatusOK, "", nil)
}

// HandleLogout revokes the session token and clears the cookie.
//
// HTTP: POST /auth/logout
//
// WHY POST AND NOT GET?
// Logout changes state. A GET could be triggered by a prefetch or an <img>
// tag on another site.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := h.cookies.FromRequest(r); ok {
		h.auth.Logout(r.Context(), raw)
	}
	h.cookies.Clear(w)
	respond(w, http.StatusOK, "", nil)
}

// HandleGoogleSSO signs in with the Google profile the frontend obtained
// from Google Identity Services.
//
// HTTP: POST /auth/sso/google  {"name", "email", "googleId", "profilePicture"}
func (h *AuthHandler) HandleGoogleSSO(w http.ResponseWriter, r *http.Request) {
	var in service.SSOInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleGoogleSSO", err)
		return
	}

	res, err := h.auth.SSOLogin(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, "handleGoogleSSO", err)
		return
	}

	h.cookies.Attach(w, res.Token, h.tokens.TTL())
	if res.Created {
		respond(w, http.StatusCreated, "", nil)
		return
	}
	respond(w, http.StatusOK, "", nil)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie and sent to Google.
// HandleGoogleCallback only proceeds when Google echoes the same value.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the redirect flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile
//  3. Sign in (or create) the account
//  4. Set the session cookie and redirect to the frontend
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		respond(w, http.StatusBadRequest, "invalid OAuth state", nil)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		respond(w, http.StatusBadRequest, "invalid OAuth state", nil)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendRedirect("denied"), http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for the Google profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		respond(w, http.StatusBadRequest, "missing OAuth code", nil)
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.Any("error", err))
		http.Redirect(w, r, h.frontendRedirect("failed"), http.StatusSeeOther)
		return
	}

	// --- Step 3: Sign in ---
	res, err := h.auth.GoogleLogin(r.Context(), gu)
	if err != nil {
		writeError(w, h.logger, "handleGoogleCallback", err)
		return
	}

	// --- Step 4: Cookie and back to the app ---
	h.cookies.Attach(w, res.Token, h.tokens.TTL())
	http.Redirect(w, r, h.frontendURL+"/", http.StatusSeeOther)
}

func (h *AuthHandler) frontendRedirect(outcome string) string {
	return h.frontendURL + "/?auth=" + url.QueryEscape(outcome)
}

// HandleVerifySession returns the signed-in user, or 401 with a bare
// envelope when there is no usable session.
//
// HTTP: POST /auth/verify-session
//
// The frontend calls this on load to decide between the app and the login
// screen, so it reads the cookie itself instead of sitting behind the guard.
func (h *AuthHandler) HandleVerifySession(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.cookies.FromRequest(r)
	if !ok {
		respond(w, http.StatusUnauthorized, "", nil)
		return
	}

	user, err := h.auth.VerifySession(r.Context(), raw)
	if err != nil {
		writeError(w, h.logger, "handleVerifySession", err)
		return
	}
	respond(w, http.StatusOK, "", user)
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleSendVerificationEmail mails a verification link to the signed-in user.
//
// HTTP: POST /auth/send/verification-email  {"email"}
// Auth: Required
func (h *AuthHandler) HandleSendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, "", nil)
		return
	}

	var in emailRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleSendVerificationEmail", err)
		return
	}

	if err := h.auth.SendVerificationEmail(r.Context(), userID, in.Email); err != nil {
		writeError(w, h.logger, "handleSendVerificationEmail", err)
		return
	}
	respond(w, http.StatusOK, service.MsgVerificationEmailSent, nil)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// HandleVerifyEmail consumes the token from the emailed link.
//
// HTTP: POST /auth/verify-email  {"token", "email"}
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in verifyEmailRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleVerifyEmail", err)
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), in.Token, in.Email); err != nil {
		writeError(w, h.logger, "handleVerifyEmail", err)
		return
	}
	respond(w, http.StatusOK, service.MsgEmailVerified, nil)
}

// HandleSendResetPasswordEmail mails a password reset link.
//
// HTTP: POST /auth/send/reset-password-email  {"email"}
func (h *AuthHandler) HandleSendResetPasswordEmail(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleSendResetPasswordEmail", err)
		return
	}

	if err := h.auth.SendResetPasswordEmail(r.Context(), in.Email); err != nil {
		writeError(w, h.logger, "handleSendResetPasswordEmail", err)
		return
	}
	respond(w, http.StatusOK, service.MsgResetEmailSent, nil)
}

// HandleResetPassword sets a new password using the emailed token.
//
// HTTP: POST /auth/reset-password  {"email", "password", "token"}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleResetPassword", err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), in); err != nil {
		writeError(w, h.logger, "handleResetPassword", err)
		return
	}
	respond(w, http.StatusOK, service.MsgPasswordReset, nil)
}
