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

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error)
}

// BatchService manages the top-level course offerings.
type BatchService struct {
	repo      batchRepository
	access    *AccessService
	cleaner   fileCleaner
	validator *validator.Validate
	logger    *zap.Logger
}

func NewBatchService(repo batchRepository, access *AccessService, cleaner fileCleaner, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		repo:      repo,
		access:    access,
		cleaner:   cleaner,
		validator: validate,
		logger:    logger,
	}
}

// List returns batches matching the filter with pagination metadata. The
// catalogue is readable by any authenticated user; batch content is not.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list batches failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return batches, pagination, nil
}

// Get returns one batch by id.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("get batch failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get batch")
	}
	return batch, nil
}

// Create creates a batch owned by the calling admin.
func (s *BatchService) Create(ctx context.Context, instructorID string, req models.CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	batch := &models.Batch{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		ThumbnailURL: req.ThumbnailURL,
		ThumbnailKey: req.ThumbnailKey,
		InstructorID: instructorID,
	}
	if batch.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be blank")
	}

	if err := s.repo.Create(ctx, batch); err != nil {
		s.logger.Error("create batch failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}

	s.logger.Info("batch created", zap.String("batch_id", batch.ID))
	return batch, nil
}

// Update applies a partial update. String fields win only when non-empty
// after trimming; a replaced thumbnail schedules the old file for cleanup.
func (s *BatchService) Update(ctx context.Context, id string, req models.UpdateBatchRequest) (*models.Batch, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		batch.Title = title
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		batch.Description = description
	}

	var oldThumbnailKey string
	if req.ThumbnailURL != nil && *req.ThumbnailURL != "" {
		if batch.ThumbnailKey != nil {
			oldThumbnailKey = *batch.ThumbnailKey
		}
		batch.ThumbnailURL = req.ThumbnailURL
		batch.ThumbnailKey = req.ThumbnailKey
	}

	if err := s.repo.Update(ctx, batch); err != nil {
		s.logger.Error("update batch failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}

	if oldThumbnailKey != "" && s.cleaner != nil {
		s.cleaner.EnqueueKeys([]string{oldThumbnailKey})
	}
	return batch, nil
}

// Delete removes the batch and everything under it: sections, lessons,
// notes and enrollments, all in one transaction. Stored files referenced by
// the removed rows are cleaned up afterwards, best effort.
func (s *BatchService) Delete(ctx context.Context, id string) (*models.CascadeResult, error) {
	result, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("delete batch cascade failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch cascade")
	}

	if s.access != nil {
		s.access.InvalidateBatch(ctx, id)
	}
	if s.cleaner != nil {
		s.cleaner.EnqueueKeys(result.StorageKeys)
	}

	s.logger.Info("batch deleted",
		zap.String("batch_id", id),
		zap.Int("sections", len(result.SectionIDs)),
		zap.Int("lessons", len(result.LessonIDs)),
		zap.Int("notes", len(result.NoteIDs)),
		zap.Int("enrollments", result.Enrollments))
	return result, nil
}
