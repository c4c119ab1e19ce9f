package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshijoe05/records-backend/internal/apperror"
	"github.com/joshijoe05/records-backend/internal/model"
	"github.com/joshijoe05/records-backend/internal/repository"
	"github.com/joshijoe05/records-backend/internal/youtube"
)

// DefaultImportTimeout bounds both YouTube calls of one import together.
const DefaultImportTimeout = 15 * time.Second

// PlaylistSource is the part of the YouTube client the import needs.
// *youtube.Client satisfies it; tests substitute a fake.
type PlaylistSource interface {
	PlaylistItems(ctx context.Context, playlistID string) ([]model.CourseItem, error)
	PlaylistDetails(ctx context.Context, playlistID string) (*model.CourseMetadata, error)
}

// CourseService turns YouTube playlists into courses and tracks the
// author's progress through them.
type CourseService struct {
	courses repository.CourseRepository
	source  PlaylistSource
	timeout time.Duration
	logger  *slog.Logger
}

func NewCourseService(courses repository.CourseRepository, source PlaylistSource, timeout time.Duration, logger *slog.Logger) *CourseService {
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &CourseService{courses: courses, source: source, timeout: timeout, logger: logger}
}

// Import creates a course from a playlist URL.
//
// FLOW:
//  1. Extract the playlist id (no id → BadRequest, YouTube is not called)
//  2. Reject a playlist the author already imported
//  3. Fetch the items, then the playlist details, one after the other
//  4. Persist the course once, only after both calls succeeded
//
// A failed fetch leaves nothing behind, so the user can simply retry.
func (s *CourseService) Import(ctx context.Context, userID, playlistURL string) (*model.Course, error) {
	playlistURL = strings.TrimSpace(playlistURL)
	if playlistURL == "" {
		return nil, apperror.ValidationFailed("youtubePlayListUrl", "youtubePlayListUrl is required")
	}
	playlistID, ok := youtube.ExtractPlaylistID(playlistURL)
	if !ok {
		return nil, apperror.ValidationFailed("youtubePlayListUrl", MsgPlaylistURLInvalid)
	}

	exists, err := s.courses.CourseExists(ctx, userID, playlistID)
	if err != nil {
		return nil, fmt.Errorf("service/course: checking playlist %s: %w", playlistID, err)
	}
	if exists {
		return nil, apperror.ConflictMessage(MsgPlaylistExists)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.source.PlaylistItems(fetchCtx, playlistID)
	if err != nil {
		s.logger.Error("fetching playlist items failed",
			slog.String("playlistID", playlistID),
			slog.Any("error", err),
		)
		return nil, apperror.Upstream(MsgPlaylistItemsFailed, err)
	}

	metadata, err := s.source.PlaylistDetails(fetchCtx, playlistID)
	if err != nil {
		s.logger.Error("fetching playlist details failed",
			slog.String("playlistID", playlistID),
			slog.Any("error", err),
		)
		return nil, apperror.Upstream(MsgPlaylistDetailsFailed, err)
	}

	course := newCourse(userID, playlistID, metadata, items)
	if err := s.courses.CreateCourse(ctx, course); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(MsgPlaylistExists)
		}
		return nil, fmt.Errorf("service/course: saving course: %w", err)
	}

	s.logger.Info("course imported",
		slog.String("courseID", course.ID),
		slog.String("playlistID", playlistID),
		slog.Int("videos", len(items)),
	)
	return course, nil
}

func newCourse(authorID, playlistID string, metadata *model.CourseMetadata, items []model.CourseItem) *model.Course {
	if items == nil {
		items = []model.CourseItem{}
	}
	progress := make([]model.VideoProgress, len(items))
	for i, it := range items {
		progress[i] = model.VideoProgress{VideoID: it.VideoID}
	}
	return &model.Course{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		PlaylistID: playlistID,
		Metadata:   metadata,
		Content:    items,
		Progress:   progress,
	}
}

// ListNotStarted returns the author's courses with no completed video,
// newest first.
func (s *CourseService) ListNotStarted(ctx context.Context, userID string) ([]model.Course, error) {
	all, err := s.courses.ListCourses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/course: listing courses: %w", err)
	}

	out := make([]model.Course, 0, len(all))
	for i := range all {
		if all[i].NotStarted() {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *CourseService) Get(ctx context.Context, userID, courseID string) (*model.Course, error) {
	course, err := s.courses.GetCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgCourseNotFound)
		}
		return nil, fmt.Errorf("service/course: loading %s: %w", courseID, err)
	}
	return course, nil
}

func (s *CourseService) Delete(ctx context.Context, userID, courseID string) error {
	if err := s.courses.DeleteCourse(ctx, userID, courseID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(MsgCourseNotFound)
		}
		return fmt.Errorf("service/course: deleting %s: %w", courseID, err)
	}
	s.logger.Info("course deleted", slog.String("courseID", courseID))
	return nil
}

type ProgressInput struct {
	VideoID     string `json:"videoId"     validate:"required"`
	IsCompleted bool   `json:"isCompleted"`
}

// UpdateProgress sets the completion flag of one video of the course.
func (s *CourseService) UpdateProgress(ctx context.Context, userID, courseID string, in ProgressInput) (*model.Course, error) {
	in.VideoID = strings.TrimSpace(in.VideoID)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	course, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !course.SetProgress(in.VideoID, in.IsCompleted) {
		return nil, apperror.NotFoundMessage(MsgVideoNotFound)
	}

	if err := s.courses.UpdateCourseProgress(ctx, course); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgCourseNotFound)
		}
		return nil, fmt.Errorf("service/course: saving progress of %s: %w", courseID, err)
	}
	return course, nil
}
