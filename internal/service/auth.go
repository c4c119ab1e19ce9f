// Package service holds the business rules of the backend.
//
// Services sit between the HTTP handlers and the storage/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → repository.Store
//	                   ↘ TokenService (JWT), Mailer
//
// Every operation returns (result, error). Expected outcomes such as a
// duplicate email or a wrong password come back as *apperror.AppError with
// the client-facing message already set; the handler maps the kind to a
// status code. Any other error is an unexpected fault.
//
// WHAT A SERVICE DOES NOT DO:
//   - It does NOT set cookies or read requests (HTTP concerns)
//   - It does NOT know which store is behind the repository interfaces
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/mailer"
	"github.com/joshijoe05/records-backend/internal/model"
	"github.com/joshijoe05/records-backend/internal/repository"
)

// AuthService handles registration, login, sessions and the email
// verification and password reset flows.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users          repository.UserRepository              → account records
//   - verifications  repository.VerificationTokenRepository → one-time mail tokens
//   - tokens         *auth.TokenService                     → session JWTs
//   - passwords      *auth.PasswordService                  → bcrypt hashing
//   - sessions       *auth.SessionVerifier                  → verify/revoke sessions
//   - mail           mailer.Mailer                          → outbound email
type AuthService struct {
	users         repository.UserRepository
	verifications repository.VerificationTokenRepository
	tokens        *auth.TokenService
	passwords     *auth.PasswordService
	sessions      *auth.SessionVerifier
	mail          mailer.Mailer
	frontendURL   string
	logger        *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// frontendURL is the origin the emailed links point at.
func NewAuthService(
	users repository.UserRepository,
	verifications repository.VerificationTokenRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessions *auth.SessionVerifier,
	mail mailer.Mailer,
	frontendURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		verifications: verifications,
		tokens:        tokens,
		passwords:     passwords,
		sessions:      sessions,
		mail:          mail,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		logger:        logger,
	}
}

// AuthResult bundles the user and the issued session token so the handler
// can set the cookie and respond in one step. Created is true when the call
// made a new account.
type AuthResult struct {
	User    *model.User
	Token   string
	Created bool
}

type RegisterInput struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=72"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SSOInput is the profile the frontend received from Google Identity.
type SSOInput struct {
	Name           string `json:"name"           validate:"required"`
	Email          string `json:"email"          validate:"required,email"`
	GoogleID       string `json:"googleId"       validate:"required"`
	ProfilePicture string `json:"profilePicture" validate:"required"`
}

type ResetPasswordInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=72"`
	Token    string `json:"token"    validate:"required"`
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", "password is too long")
	}

	exists, err := s.emailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ConflictMessage(MsgUserExists)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		ProfilePicture: avatarURL(in.Name),
		IsActive:       true,
		IsManualAuth:   true,
		Skills:         []string{},
	}

	// The existence check above is only a fast path. Two concurrent
	// registrations race past it; the unique email index decides.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(MsgUserExists)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.signIn(user, true)
}

// Login checks a password and signs the user in.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.BadRequest(MsgGoogleAccount)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: checking password of %s: %w", user.ID, err)
	}

	return s.signIn(user, false)
}

// Logout revokes the session token until it would have expired anyway.
// It is best effort: the cookie is cleared regardless, so a store failure is
// logged rather than reported.
func (s *AuthService) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}
	if err := s.sessions.Revoke(ctx, rawToken); err != nil {
		s.logger.Warn("revoking session token failed", slog.Any("error", err))
	}
}

// SSOLogin signs in with a Google profile, creating the account on first use.
// An existing account with the same email is signed in as-is; nothing on it
// is overwritten.
func (s *AuthService) SSOLogin(ctx context.Context, in SSOInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return s.signIn(existing, false)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}

	user := &model.User{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Email:           in.Email,
		GoogleID:        in.GoogleID,
		ProfilePicture:  in.ProfilePicture,
		IsActive:        true,
		IsEmailVerified: true,
		Skills:          []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating user: %w", err)
		}
		// Lost a race with a concurrent first sign-in: use the winner's row.
		existing, err := s.users.GetUserByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("service/auth: reloading user: %w", err)
		}
		return s.signIn(existing, false)
	}

	s.logger.Info("user registered via Google", slog.String("userID", user.ID))
	return s.signIn(user, true)
}

// GoogleLogin completes the server-side OAuth redirect flow. The userinfo
// endpoint may omit the name or picture, so sensible defaults are filled in
// before the regular SSO path runs.
func (s *AuthService) GoogleLogin(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}
	if !gu.EmailVerified {
		return nil, apperror.Forbidden(MsgGoogleEmailUnverified)
	}

	name := gu.Name
	if name == "" {
		name, _, _ = strings.Cut(gu.Email, "@")
	}
	picture := gu.Picture
	if picture == "" {
		picture = avatarURL(name)
	}

	return s.SSOLogin(ctx, SSOInput{
		Name:           name,
		Email:          gu.Email,
		GoogleID:       gu.Sub,
		ProfilePicture: picture,
	})
}

// VerifySession returns the user behind a raw session token. Any reason the
// session is not usable is reported as apperror.ErrUnauthorized.
func (s *AuthService) VerifySession(ctx context.Context, rawToken string) (*model.User, error) {
	_, user, err := s.sessions.Resolve(ctx, rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return nil, apperror.Unauthorized("")
		}
		return nil, fmt.Errorf("service/auth: resolving session: %w", err)
	}
	return user, nil
}

// SendVerificationEmail mails a verification link to the signed-in user.
// Asking again before the link is used re-sends the same token.
func (s *AuthService) SendVerificationEmail(ctx context.Context, sessionUserID, email string) error {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return apperror.ValidationFailed("email", "email must be a valid email")
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return apperror.BadRequest(MsgEmailAlreadyVerified)
	}
	if user.ID != sessionUserID {
		return apperror.Forbidden(MsgSessionMismatch)
	}

	token, err := s.pendingToken(ctx, user.ID, model.PurposeEmailVerification)
	if err != nil {
		return err
	}

	msg, err := mailer.VerificationEmail(user.Email, user.Name, s.link("verify-email", token.ID, user.Email))
	if err != nil {
		return fmt.Errorf("service/auth: rendering verification email: %w", err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Error("sending verification email failed",
			slog.String("userID", user.ID),
			slog.Any("error", err),
		)
		return apperror.Upstream(MsgVerificationEmailFailed, err)
	}
	return nil
}

// VerifyEmail consumes a verification token. email is the address carried
// by the link. Once the token is gone it only decides between "already
// verified" and "not found", so a second click on the same link reads as
// already verified. A live token must belong to that address.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenID, email string) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return apperror.ValidationFailed("token", "token is required")
	}
	email = normalizeEmail(email)

	token, err := s.verifications.GetVerificationToken(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("service/auth: loading verification token: %w", err)
		}
		if email != "" {
			u, err := s.users.GetUserByEmail(ctx, email)
			switch {
			case err == nil && u.IsEmailVerified:
				return apperror.BadRequest(MsgEmailAlreadyVerified)
			case err != nil && !errors.Is(err, apperror.ErrNotFound):
				return fmt.Errorf("service/auth: loading user: %w", err)
			}
		}
		return apperror.NotFoundMessage(MsgVerificationTokenMissing)
	}
	if token.Purpose != model.PurposeEmailVerification {
		return apperror.NotFoundMessage(MsgVerificationTokenMissing)
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(MsgUserNotFound)
		}
		return fmt.Errorf("service/auth: loading token owner: %w", err)
	}
	if email != "" && user.Email != email {
		return apperror.NotFoundMessage(MsgVerificationTokenMissing)
	}
	if user.IsEmailVerified {
		return apperror.BadRequest(MsgEmailAlreadyVerified)
	}

	user.IsEmailVerified = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: marking %s verified: %w", user.ID, err)
	}
	if err := s.verifications.DeleteVerificationToken(ctx, token.ID); err != nil {
		return fmt.Errorf("service/auth: deleting verification token: %w", err)
	}

	s.logger.Info("email verified", slog.String("userID", user.ID))
	return nil
}

// SendResetPasswordEmail mails a password reset link. Accounts created by
// Google sign-in may use it to set a first password.
func (s *AuthService) SendResetPasswordEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return apperror.ValidationFailed("email", "email must be a valid email")
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.pendingToken(ctx, user.ID, model.PurposePasswordReset)
	if err != nil {
		return err
	}

	msg, err := mailer.PasswordResetEmail(user.Email, user.Name, s.link("reset-password", token.ID, user.Email))
	if err != nil {
		return fmt.Errorf("service/auth: rendering reset email: %w", err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Error("sending reset password email failed",
			slog.String("userID", user.ID),
			slog.Any("error", err),
		)
		return apperror.Upstream(MsgResetEmailFailed, err)
	}
	return nil
}

// ResetPassword replaces the password of the account that owns the reset
// token and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	in.Token = strings.TrimSpace(in.Token)
	if err := validateInput(in); err != nil {
		return err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", "password is too long")
	}

	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return err
	}

	token, err := s.verifications.GetVerificationToken(ctx, in.Token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(MsgResetTokenMissing)
		}
		return fmt.Errorf("service/auth: loading reset token: %w", err)
	}
	if token.Purpose != model.PurposePasswordReset || token.UserID != user.ID {
		return apperror.NotFoundMessage(MsgResetTokenMissing)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	user.PasswordHash = hash
	user.IsManualAuth = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: saving password of %s: %w", user.ID, err)
	}
	if err := s.verifications.DeleteVerificationToken(ctx, token.ID); err != nil {
		return fmt.Errorf("service/auth: deleting reset token: %w", err)
	}

	s.logger.Info("password reset", slog.String("userID", user.ID))
	return nil
}

func (s *AuthService) signIn(user *model.User, created bool) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token, Created: created}, nil
}

func (s *AuthService) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("service/auth: checking email: %w", err)
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}
	return user, nil
}

// pendingToken returns the user's unused token for purpose, minting one if
// there is none. The (user, purpose) unique index makes a concurrent mint
// fail with a conflict, in which case the other request's token is reused.
func (s *AuthService) pendingToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.VerificationToken, error) {
	token, err := s.verifications.FindVerificationToken(ctx, userID, purpose)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: finding %s token: %w", purpose, err)
	}

	token = &model.VerificationToken{
		ID:      uuid.NewString(),
		UserID:  userID,
		Purpose: purpose,
	}
	if err := s.verifications.CreateVerificationToken(ctx, token); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating %s token: %w", purpose, err)
		}
		token, err = s.verifications.FindVerificationToken(ctx, userID, purpose)
		if err != nil {
			return nil, fmt.Errorf("service/auth: reloading %s token: %w", purpose, err)
		}
	}
	return token, nil
}

func (s *AuthService) link(path, tokenID, email string) string {
	return s.frontendURL + "/" + path + "?token=" + url.QueryEscape(tokenID) + "&email=" + url.QueryEscape(email)
}

// avatarURL is the generated initials picture for accounts without one.
func avatarURL(name string) string {
	return "https://avatars.dicebear.com/api/initials/" + url.PathEscape(strings.ReplaceAll(name, " ", "-")) + ".png"
}
