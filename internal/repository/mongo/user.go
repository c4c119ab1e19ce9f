package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Skills == nil {
		user.Skills = []string{}
	}

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("mongo: inserting user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: finding user: %w", err)
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"userId": id}, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, fmt.Errorf("mongo: checking username: %w", err)
	}
	return n > 0, nil
}

// UpdateUser replaces the stored document, keeping its _id.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	if user.Skills == nil {
		user.Skills = []string{}
	}

	res, err := s.users.ReplaceOne(ctx, bson.M{"userId": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("mongo: updating user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// GetProfile resolves skill ids with a $lookup on the skills collection.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         skillsCollection,
			"localField":   "skills",
			"foreignField": "skillId",
			"as":           "skillDocs",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":                   0,
			"userId":                1,
			"username":              1,
			"profilePicture":        1,
			"isOnBoardingCompleted": 1,
			"skills":                "$skillDocs",
		}}},
	}

	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo: aggregating profile: %w", err)
	}
	defer cur.Close(ctx)

	var profiles []model.Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("mongo: decoding profile: %w", err)
	}
	if len(profiles) == 0 {
		return nil, apperror.NotFound("user", userID)
	}

	p := profiles[0]
	if p.Skills == nil {
		p.Skills = []model.Skill{}
	}
	return &p, nil
}
