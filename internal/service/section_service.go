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

type sectionRepository interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Section, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error)
}

type sectionLessonLister interface {
	ListBySectionIDs(ctx context.Context, sectionIDs []string) ([]models.Lesson, error)
}

// SectionService manages sections and assembles the batch content tree.
type SectionService struct {
	repo      sectionRepository
	batches   batchResolver
	lessons   sectionLessonLister
	cleaner   fileCleaner
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSectionService(
	repo sectionRepository,
	batches batchResolver,
	lessons sectionLessonLister,
	cleaner fileCleaner,
	validate *validator.Validate,
	logger *zap.Logger,
) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		repo:      repo,
		batches:   batches,
		lessons:   lessons,
		cleaner:   cleaner,
		validator: validate,
		logger:    logger,
	}
}

// Get returns one section by id.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		s.logger.Error("get section failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get section")
	}
	return section, nil
}

// ListContent returns the batch's sections ordered by position, each with
// its lessons and per-section aggregates. Aggregates are computed on every
// read so they can never drift from the stored rows.
func (s *SectionService) ListContent(ctx context.Context, batchID string) ([]models.SectionContent, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("list content: resolve batch failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}

	sections, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("list sections failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	if len(sections) == 0 {
		return []models.SectionContent{}, nil
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, section := range sections {
		sectionIDs = append(sectionIDs, section.ID)
	}

	lessons, err := s.lessons.ListBySectionIDs(ctx, sectionIDs)
	if err != nil {
		s.logger.Error("list lessons failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}

	bySection := make(map[string][]models.Lesson, len(sections))
	for _, lesson := range lessons {
		bySection[lesson.SectionID] = append(bySection[lesson.SectionID], lesson)
	}

	content := make([]models.SectionContent, 0, len(sections))
	for _, section := range sections {
		sectionLessons := bySection[section.ID]
		if sectionLessons == nil {
			sectionLessons = []models.Lesson{}
		}
		totalDuration := 0
		for _, lesson := range sectionLessons {
			totalDuration += lesson.Duration
		}
		content = append(content, models.SectionContent{
			Section:       section,
			Lessons:       sectionLessons,
			LessonCount:   len(sectionLessons),
			TotalDuration: totalDuration,
		})
	}
	return content, nil
}

// Create adds a section to a batch. When no order is supplied the section
// is appended after its existing siblings.
func (s *SectionService) Create(ctx context.Context, batchID string, req models.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("create section: resolve batch failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}

	position := 0
	if req.Order != nil {
		position = *req.Order
	} else {
		count, err := s.repo.CountByBatch(ctx, batchID)
		if err != nil {
			s.logger.Error("create section: count siblings failed", zap.String("batch_id", batchID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count siblings")
		}
		position = count
	}

	section := &models.Section{
		BatchID:  batchID,
		Title:    strings.TrimSpace(req.Title),
		Position: position,
	}
	if section.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}

	if err := s.repo.Create(ctx, section); err != nil {
		s.logger.Error("create section failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Update applies a partial update: title wins when non-empty after trimming,
// order is applied whenever supplied, zero included.
func (s *SectionService) Update(ctx context.Context, id string, req models.UpdateSectionRequest) (*models.Section, error) {
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		section.Title = title
	}
	if req.Order != nil {
		section.Position = *req.Order
	}

	if err := s.repo.Update(ctx, section); err != nil {
		s.logger.Error("update section failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// Delete removes the section, its lessons and their notes in one
// transaction. Enrollments are untouched.
func (s *SectionService) Delete(ctx context.Context, id string) (*models.CascadeResult, error) {
	result, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		s.logger.Error("delete section cascade failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section cascade")
	}

	if s.cleaner != nil {
		s.cleaner.EnqueueKeys(result.StorageKeys)
	}
	s.logger.Info("section deleted",
		zap.String("section_id", id),
		zap.Int("lessons", len(result.LessonIDs)),
		zap.Int("notes", len(result.NoteIDs)))
	return result, nil
}
