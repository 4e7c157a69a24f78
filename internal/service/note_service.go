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

type noteRepository interface {
	ListByLesson(ctx context.Context, lessonID string) ([]models.Note, error)
	FindByID(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id string) error
}

type lessonResolver interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

// NoteService manages the downloadable attachments under lessons.
type NoteService struct {
	repo      noteRepository
	lessons   lessonResolver
	notifier  contentNotifier
	cleaner   fileCleaner
	validator *validator.Validate
	logger    *zap.Logger
}

func NewNoteService(
	repo noteRepository,
	lessons lessonResolver,
	notifier contentNotifier,
	cleaner fileCleaner,
	validate *validator.Validate,
	logger *zap.Logger,
) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{
		repo:      repo,
		lessons:   lessons,
		notifier:  notifier,
		cleaner:   cleaner,
		validator: validate,
		logger:    logger,
	}
}

// ListByLesson returns the lesson's notes, newest first.
func (s *NoteService) ListByLesson(ctx context.Context, lessonID string) ([]models.Note, error) {
	notes, err := s.repo.ListByLesson(ctx, lessonID)
	if err != nil {
		s.logger.Error("list notes failed", zap.String("lesson_id", lessonID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	return notes, nil
}

// Get returns one note by id.
func (s *NoteService) Get(ctx context.Context, id string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		s.logger.Error("get note failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get note")
	}
	return note, nil
}

// Create attaches a note to a lesson and notifies enrolled students.
func (s *NoteService) Create(ctx context.Context, lessonID string, req models.CreateNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		s.logger.Error("create note: resolve lesson failed", zap.String("lesson_id", lessonID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve lesson")
	}

	note := &models.Note{
		LessonID:    lessonID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		FileURL:     strings.TrimSpace(req.FileURL),
		FileKey:     req.FileKey,
	}
	if note.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.logger.Error("create note failed", zap.String("lesson_id", lessonID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}

	s.notifier.FanoutToSection(ctx, lesson.SectionID, models.NotificationNoteAdded, note.Title, &lesson.ID)
	return note, nil
}

// Update applies a partial update: strings win when non-empty after
// trimming. The file reference is immutable; replace the note instead.
func (s *NoteService) Update(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		note.Title = title
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		note.Description = &description
	}

	if err := s.repo.Update(ctx, note); err != nil {
		s.logger.Error("update note failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return note, nil
}

// Delete removes the note and schedules its stored file for cleanup.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	note, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete note failed", zap.String("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}

	if note.FileKey != "" && s.cleaner != nil {
		s.cleaner.EnqueueKeys([]string{note.FileKey})
	}
	return nil
}
