package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
	"github.com/joshijoe05/records-backend/internal/repository"
)

// SkillService maintains the skill taxonomy shown during onboarding.
type SkillService struct {
	skills repository.SkillRepository
	logger *slog.Logger
}

func NewSkillService(skills repository.SkillRepository, logger *slog.Logger) *SkillService {
	return &SkillService{skills: skills, logger: logger}
}

type CreateSkillInput struct {
	Name       string `json:"name"            validate:"required"`
	CategoryID string `json:"skillCategoryId" validate:"required"`
	ImageURL   string `json:"imageUrl"        validate:"required,url"`
}

// NormalizeName folds a skill or category name to its stored form:
// lower-case with single spaces, so "Node  JS" and "node js" collide.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (s *SkillService) CreateCategory(ctx context.Context, name string) (*model.SkillCategory, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	category := &model.SkillCategory{ID: uuid.NewString(), Name: name}
	if err := s.skills.CreateSkillCategory(ctx, category); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(MsgSkillCategoryExists)
		}
		return nil, fmt.Errorf("service/skill: creating category: %w", err)
	}

	s.logger.Info("skill category created", slog.String("name", name))
	return category, nil
}

func (s *SkillService) ListCategories(ctx context.Context) ([]model.SkillCategory, error) {
	categories, err := s.skills.ListSkillCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/skill: listing categories: %w", err)
	}
	if categories == nil {
		categories = []model.SkillCategory{}
	}
	return categories, nil
}

// CreateSkill adds a skill to an existing category.
func (s *SkillService) CreateSkill(ctx context.Context, in CreateSkillInput) (*model.Skill, error) {
	in.Name = NormalizeName(in.Name)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.skills.GetSkillCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgSkillCategoryNotFound)
		}
		return nil, fmt.Errorf("service/skill: loading category: %w", err)
	}

	skill := &model.Skill{
		ID:         uuid.NewString(),
		Name:       in.Name,
		CategoryID: in.CategoryID,
		ImageURL:   in.ImageURL,
	}
	if err := s.skills.CreateSkill(ctx, skill); err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			return nil, apperror.ConflictMessage(MsgSkillExists)
		case errors.Is(err, apperror.ErrNotFound):
			// Category deleted between the check and the insert.
			return nil, apperror.NotFoundMessage(MsgSkillCategoryNotFound)
		}
		return nil, fmt.Errorf("service/skill: creating skill: %w", err)
	}

	s.logger.Info("skill created", slog.String("name", skill.Name), slog.String("categoryID", skill.CategoryID))
	return skill, nil
}

// ListSkills returns every skill, or one category's when categoryID is set.
func (s *SkillService) ListSkills(ctx context.Context, categoryID string) ([]model.Skill, error) {
	skills, err := s.skills.ListSkills(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return nil, fmt.Errorf("service/skill: listing skills: %w", err)
	}
	if skills == nil {
		skills = []model.Skill{}
	}
	return skills, nil
}
