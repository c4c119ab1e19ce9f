package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type revokedToken struct {
	TokenHash string    `bson:"tokenHash"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Revoke upserts the hash. The TTL index removes it after expiresAt.
func (s *Store) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := s.revoked.UpdateOne(ctx,
		bson.M{"tokenHash": tokenHash},
		bson.M{"$set": bson.M{"expiresAt": expiresAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: revoking token: %w", err)
	}
	return nil
}

// IsRevoked also checks expiresAt itself: the TTL monitor only runs about
// once a minute.
func (s *Store) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var rt revokedToken
	err := s.revoked.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&rt)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("mongo: checking revoked token: %w", err)
	}
	return time.Now().Before(rt.ExpiresAt), nil
}
