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

// CreateCourse writes the aggregate as a single document.
func (s *Store) CreateCourse(ctx context.Context, course *model.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Content == nil {
		course.Content = []model.CourseItem{}
	}
	if course.Progress == nil {
		course.Progress = []model.VideoProgress{}
	}

	if _, err := s.courses.InsertOne(ctx, course); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("course", course.PlaylistID)
		}
		return fmt.Errorf("mongo: inserting course: %w", err)
	}
	return nil
}

func (s *Store) CourseExists(ctx context.Context, authorID, playlistID string) (bool, error) {
	n, err := s.courses.CountDocuments(ctx,
		bson.M{"authorId": authorID, "playlistId": playlistID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo: checking course: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetCourse(ctx context.Context, authorID, courseID string) (*model.Course, error) {
	var c model.Course
	err := s.courses.FindOne(ctx, bson.M{"courseId": courseID, "authorId": authorID}).Decode(&c)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("course", courseID)
		}
		return nil, fmt.Errorf("mongo: finding course %s: %w", courseID, err)
	}
	return &c, nil
}

func (s *Store) ListCourses(ctx context.Context, authorID string) ([]model.Course, error) {
	cur, err := s.courses.Find(ctx,
		bson.M{"authorId": authorID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing courses: %w", err)
	}
	defer cur.Close(ctx)

	courses := []model.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("mongo: decoding courses: %w", err)
	}
	return courses, nil
}

func (s *Store) DeleteCourse(ctx context.Context, authorID, courseID string) error {
	res, err := s.courses.DeleteOne(ctx, bson.M{"courseId": courseID, "authorId": authorID})
	if err != nil {
		return fmt.Errorf("mongo: deleting course %s: %w", courseID, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("course", courseID)
	}
	return nil
}

func (s *Store) UpdateCourseProgress(ctx context.Context, course *model.Course) error {
	course.UpdatedAt = time.Now().UTC()

	res, err := s.courses.UpdateOne(ctx,
		bson.M{"courseId": course.ID, "authorId": course.AuthorID},
		bson.M{"$set": bson.M{"courseProgress": course.Progress, "updatedAt": course.UpdatedAt}},
	)
	if err != nil {
		return fmt.Errorf("mongo: updating course %s: %w", course.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("course", course.ID)
	}
	return nil
}
