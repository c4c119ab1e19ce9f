package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

func (s *Store) CreateSkillCategory(ctx context.Context, category *model.SkillCategory) error {
	category.CreatedAt = time.Now().UTC()

	if _, err := s.skillCategories.InsertOne(ctx, category); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("skill category", category.Name)
		}
		return fmt.Errorf("mongo: inserting skill category: %w", err)
	}
	return nil
}

func (s *Store) GetSkillCategory(ctx context.Context, id string) (*model.SkillCategory, error) {
	var c model.SkillCategory
	if err := s.skillCategories.FindOne(ctx, bson.M{"skillCategoryId": id}).Decode(&c); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("skill category", id)
		}
		return nil, fmt.Errorf("mongo: finding skill category %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListSkillCategories(ctx context.Context) ([]model.SkillCategory, error) {
	cur, err := s.skillCategories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing skill categories: %w", err)
	}
	defer cur.Close(ctx)

	categories := []model.SkillCategory{}
	if err := cur.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("mongo: decoding skill categories: %w", err)
	}
	return categories, nil
}

// CreateSkill has no foreign keys to lean on, so the category is checked
// first.
func (s *Store) CreateSkill(ctx context.Context, skill *model.Skill) error {
	if _, err := s.GetSkillCategory(ctx, skill.CategoryID); err != nil {
		return err
	}

	skill.CreatedAt = time.Now().UTC()
	if _, err := s.skills.InsertOne(ctx, skill); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("skill", skill.Name)
		}
		return fmt.Errorf("mongo: inserting skill: %w", err)
	}
	return nil
}

func (s *Store) ListSkills(ctx context.Context, categoryID string) ([]model.Skill, error) {
	filter := bson.M{}
	if categoryID != "" {
		filter["skillCategoryId"] = categoryID
	}

	cur, err := s.skills.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing skills: %w", err)
	}
	defer cur.Close(ctx)

	skills := []model.Skill{}
	if err := cur.All(ctx, &skills); err != nil {
		return nil, fmt.Errorf("mongo: decoding skills: %w", err)
	}
	return skills, nil
}
