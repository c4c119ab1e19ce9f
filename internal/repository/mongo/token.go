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

func (s *Store) CreateVerificationToken(ctx context.Context, token *model.VerificationToken) error {
	token.CreatedAt = time.Now().UTC()

	if _, err := s.tokens.InsertOne(ctx, token); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("verification token", token.UserID)
		}
		return fmt.Errorf("mongo: inserting verification token: %w", err)
	}
	return nil
}

func (s *Store) GetVerificationToken(ctx context.Context, id string) (*model.VerificationToken, error) {
	return s.findToken(ctx, bson.M{"verificationTokenId": id}, id)
}

func (s *Store) FindVerificationToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.VerificationToken, error) {
	return s.findToken(ctx, bson.M{"userId": userID, "purpose": purpose}, userID)
}

func (s *Store) findToken(ctx context.Context, filter bson.M, key string) (*model.VerificationToken, error) {
	var t model.VerificationToken
	if err := s.tokens.FindOne(ctx, filter).Decode(&t); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("verification token", key)
		}
		return nil, fmt.Errorf("mongo: finding verification token: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteVerificationToken(ctx context.Context, id string) error {
	res, err := s.tokens.DeleteOne(ctx, bson.M{"verificationTokenId": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting verification token %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("verification token", id)
	}
	return nil
}
