// Package mongo implements repository.Store on MongoDB, the production
// document store.
//
// Documents use the same camelCase field names as the JSON API (see the bson
// tags in package model). The application-level ids (userId, courseId, ...)
// are separate from Mongo's _id and carry their own unique indexes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/joshijoe05/records-backend/internal/repository"
)

const (
	usersCollection              = "users"
	verificationTokensCollection = "verificationtokens"
	skillsCollection             = "skills"
	skillCategoriesCollection    = "skillcategories"
	coursesCollection            = "courses"
	revokedTokensCollection      = "revokedtokens"
)

var _ repository.Store = (*Store)(nil)

// Store holds one client and the handles of every collection it uses.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	users           *mongo.Collection
	tokens          *mongo.Collection
	skills          *mongo.Collection
	skillCategories *mongo.Collection
	courses         *mongo.Collection
	revoked         *mongo.Collection
}

// New connects to uri, verifies the connection and creates the indexes the
// store relies on for uniqueness and expiry.
func New(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:          client,
		db:              db,
		users:           db.Collection(usersCollection),
		tokens:          db.Collection(verificationTokensCollection),
		skills:          db.Collection(skillsCollection),
		skillCategories: db.Collection(skillCategoriesCollection),
		courses:         db.Collection(coursesCollection),
		revoked:         db.Collection(revokedTokensCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// indexModels lists the indexes per collection. Uniqueness lives here rather
// than in the services so concurrent requests cannot both pass a
// check-then-insert.
func indexModels() map[string][]mongo.IndexModel {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	return map[string][]mongo.IndexModel{
		usersCollection: {
			unique(bson.D{{Key: "userId", Value: 1}}),
			unique(bson.D{{Key: "email", Value: 1}}),
			// Only users that picked a username take part in its uniqueness.
			{
				Keys: bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
			},
		},
		verificationTokensCollection: {
			unique(bson.D{{Key: "verificationTokenId", Value: 1}}),
			unique(bson.D{{Key: "userId", Value: 1}, {Key: "purpose", Value: 1}}),
		},
		skillsCollection: {
			unique(bson.D{{Key: "skillId", Value: 1}}),
			unique(bson.D{{Key: "name", Value: 1}}),
			{Keys: bson.D{{Key: "skillCategoryId", Value: 1}}},
		},
		skillCategoriesCollection: {
			unique(bson.D{{Key: "skillCategoryId", Value: 1}}),
			unique(bson.D{{Key: "name", Value: 1}}),
		},
		coursesCollection: {
			unique(bson.D{{Key: "courseId", Value: 1}}),
			unique(bson.D{{Key: "authorId", Value: 1}, {Key: "playlistId", Value: 1}}),
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		revokedTokensCollection: {
			unique(bson.D{{Key: "tokenHash", Value: 1}}),
			// TTL: the server deletes entries once expiresAt has passed.
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	for name, models := range indexModels() {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
