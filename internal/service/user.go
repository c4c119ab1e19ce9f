package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
	"github.com/joshijoe05/records-backend/internal/repository"
)

// UserService manages the public profile: username and onboarding skills.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UsernameAvailability returns nil when nobody has claimed username yet.
func (s *UserService) UsernameAvailability(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return fmt.Errorf("service/user: checking username: %w", err)
	}
	if taken {
		return apperror.ConflictMessage(MsgUsernameExists)
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/user: loading profile %s: %w", userID, err)
	}
	return p, nil
}

// UpdateUsername claims username for the user. Any existing holder of the
// name, the caller included, makes it a Conflict.
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return fmt.Errorf("service/user: checking username: %w", err)
	}
	if taken {
		return apperror.ConflictMessage(MsgUsernameExists)
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	user.Username = username
	user.IsUsernameUpdated = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		// A concurrent claim of the same name trips the unique index.
		if errors.Is(err, apperror.ErrConflict) {
			return apperror.ConflictMessage(MsgUsernameExists)
		}
		return fmt.Errorf("service/user: updating %s: %w", userID, err)
	}
	return nil
}

// Onboarding stores the skills the user picked and marks onboarding done.
func (s *UserService) Onboarding(ctx context.Context, userID string, skillIDs []string) error {
	if len(skillIDs) == 0 {
		return apperror.ValidationFailed("skills", MsgSkillsRequired)
	}
	for _, id := range skillIDs {
		if strings.TrimSpace(id) == "" {
			return apperror.ValidationFailed("skills", MsgSkillsRequired)
		}
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	user.Skills = skillIDs
	user.IsOnBoardingCompleted = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/user: updating %s: %w", userID, err)
	}

	s.logger.Info("onboarding completed",
		slog.String("userID", userID),
		slog.Int("skills", len(skillIDs)),
	)
	return nil
}

func (s *UserService) load(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/user: loading %s: %w", userID, err)
	}
	return user, nil
}
