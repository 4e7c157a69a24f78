package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"

	"github.com/teachhub/teachhub-api/internal/models"
)

type lessonRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	CountBySection(ctx context.Context, sectionID string) (int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	UpdateLiveStatus(ctx context.Context, id string, status models.LiveStatus) error
	SetVideo(ctx context.Context, id, videoURL, videoKey string) error
	DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error)
}

type contentNotifier interface {
	FanoutToSection(ctx context.Context, sectionID string, event models.NotificationType, subject string, lessonID *string)
}

// LessonService manages lessons: the recorded and live creation paths, the
// live lifecycle and recording attachment.
type LessonService struct {
	repo      lessonRepository
	sections  sectionResolver
	notifier  contentNotifier
	cleaner   fileCleaner
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLessonService(
	repo lessonRepository,
	sections sectionResolver,
	notifier contentNotifier,
	cleaner fileCleaner,
	validate *validator.Validate,
	logger *zap.Logger,
) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:      repo,
		sections:  sections,
		notifier:  notifier,
		cleaner:   cleaner,
		validator: validate,
		logger:    logger,
	}
}

// Get returns one lesson by id.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		s.logger.Error("get lesson failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get lesson")
	}
	return lesson, nil
}

// ListBySection returns the section's lessons ordered by position.
func (s *LessonService) ListBySection(ctx context.Context, sectionID string) ([]models.Lesson, error) {
	lessons, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		s.logger.Error("list lessons failed", zap.String("section_id", sectionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Create adds a lesson to a section and notifies enrolled students. The
// recorded path requires a video reference; the live path requires platform,
// join URL and schedule, and starts in the scheduled state.
func (s *LessonService) Create(ctx context.Context, sectionID string, req models.CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		s.logger.Error("create lesson: resolve section failed", zap.String("section_id", sectionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve section")
	}

	lesson := &models.Lesson{
		SectionID:   sectionID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		Duration:    req.Duration,
	}
	if lesson.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}

	event := models.NotificationLessonUploaded
	switch req.Type {
	case models.LessonTypeRecorded:
		if strings.TrimSpace(req.VideoURL) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "video_url is required for recorded lessons")
		}
		videoURL := strings.TrimSpace(req.VideoURL)
		lesson.VideoURL = &videoURL
		if req.VideoKey != "" {
			videoKey := req.VideoKey
			lesson.VideoKey = &videoKey
		}
	case models.LessonTypeLive:
		if req.LivePlatform == nil || strings.TrimSpace(req.LiveJoinURL) == "" || req.LiveScheduledAt == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "live_platform, live_join_url and live_scheduled_at are required for live lessons")
		}
		switch *req.LivePlatform {
		case models.LivePlatformZoom, models.LivePlatformYouTube, models.LivePlatformOther:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "live_platform must be zoom, youtube or other")
		}
		joinURL := strings.TrimSpace(req.LiveJoinURL)
		status := models.LiveStatusScheduled
		lesson.LivePlatform = req.LivePlatform
		lesson.LiveJoinURL = &joinURL
		lesson.LiveScheduledAt = req.LiveScheduledAt
		lesson.LiveStatus = &status
		event = models.NotificationLiveScheduled
	}

	if req.Order != nil {
		lesson.Position = *req.Order
	} else {
		count, err := s.repo.CountBySection(ctx, sectionID)
		if err != nil {
			s.logger.Error("create lesson: count siblings failed", zap.String("section_id", sectionID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count siblings")
		}
		lesson.Position = count
	}

	if err := s.repo.Create(ctx, lesson); err != nil {
		s.logger.Error("create lesson failed", zap.String("section_id", sectionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}

	s.notifier.FanoutToSection(ctx, sectionID, event, lesson.Title, &lesson.ID)
	return lesson, nil
}

// Update applies a partial update: strings win when non-empty after
// trimming, numeric pointers are applied whenever supplied, zero included.
func (s *LessonService) Update(ctx context.Context, id string, req models.UpdateLessonRequest) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		lesson.Title = title
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		lesson.Description = &description
	}
	if req.Order != nil {
		lesson.Position = *req.Order
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}

	if err := s.repo.Update(ctx, lesson); err != nil {
		s.logger.Error("update lesson failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// StartLive moves a scheduled live lesson to the live state and notifies
// enrolled students.
func (s *LessonService) StartLive(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeLive || lesson.LiveStatus == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson is not a live class")
	}
	if *lesson.LiveStatus != models.LiveStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "live class is not in the scheduled state")
	}

	if err := s.repo.UpdateLiveStatus(ctx, id, models.LiveStatusLive); err != nil {
		s.logger.Error("start live failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start live")
	}
	status := models.LiveStatusLive
	lesson.LiveStatus = &status

	s.notifier.FanoutToSection(ctx, lesson.SectionID, models.NotificationLiveStarted, lesson.Title, &lesson.ID)
	return lesson, nil
}

// EndLive moves a running live lesson to the ended state.
func (s *LessonService) EndLive(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeLive || lesson.LiveStatus == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson is not a live class")
	}
	if *lesson.LiveStatus != models.LiveStatusLive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "live class is not running")
	}

	if err := s.repo.UpdateLiveStatus(ctx, id, models.LiveStatusEnded); err != nil {
		s.logger.Error("end live failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end live")
	}
	status := models.LiveStatusEnded
	lesson.LiveStatus = &status
	return lesson, nil
}

// AttachRecording stores the uploaded recording reference on a live lesson
// and notifies enrolled students. The lesson is presented as recorded from
// then on.
func (s *LessonService) AttachRecording(ctx context.Context, id string, req models.AttachRecordingRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeLive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "recordings can only be attached to live classes")
	}

	var oldVideoKey string
	if lesson.VideoKey != nil {
		oldVideoKey = *lesson.VideoKey
	}

	videoURL := strings.TrimSpace(req.VideoURL)
	if err := s.repo.SetVideo(ctx, id, videoURL, req.VideoKey); err != nil {
		s.logger.Error("attach recording failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach recording")
	}
	lesson.VideoURL = &videoURL
	if req.VideoKey != "" {
		videoKey := req.VideoKey
		lesson.VideoKey = &videoKey
	}

	if oldVideoKey != "" && oldVideoKey != req.VideoKey && s.cleaner != nil {
		s.cleaner.EnqueueKeys([]string{oldVideoKey})
	}

	s.notifier.FanoutToSection(ctx, lesson.SectionID, models.NotificationRecordingUploaded, lesson.Title, &lesson.ID)
	return lesson, nil
}

// Delete removes the lesson and its notes in one transaction.
func (s *LessonService) Delete(ctx context.Context, id string) (*models.CascadeResult, error) {
	result, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		s.logger.Error("delete lesson cascade failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson cascade")
	}

	if s.cleaner != nil {
		s.cleaner.EnqueueKeys(result.StorageKeys)
	}
	s.logger.Info("lesson deleted", zap.String("lesson_id", id), zap.Int("notes", len(result.NoteIDs)))
	return result, nil
}
