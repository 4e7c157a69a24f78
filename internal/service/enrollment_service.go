package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/repository"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByUserAndBatch(ctx context.Context, userID, batchID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	DeleteByUserAndBatch(ctx context.Context, userID, batchID string) (bool, error)
}

// EnrollmentService runs the enrollment state machine: student requests,
// admin approval and rejection, direct enrollment and revocation. Every
// mutation invalidates the cached access decision for the affected pair.
type EnrollmentService struct {
	repo      enrollmentRepository
	batches   batchResolver
	users     userRepository
	access    *AccessService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewEnrollmentService(
	repo enrollmentRepository,
	batches batchResolver,
	users userRepository,
	access *AccessService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		batches:   batches,
		users:     users,
		access:    access,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments matching the filter with student and batch info.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list enrollments failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return enrollments, pagination, nil
}

// Request creates a PENDING enrollment for the caller. Admins and the
// batch's instructor cannot enroll; a second request for the same batch is
// a conflict regardless of the existing record's status.
func (s *EnrollmentService) Request(ctx context.Context, claims *models.JWTClaims, batchID string) (*models.Enrollment, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admins cannot enroll in batches")
	}

	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("enroll: resolve batch failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}
	if batch.InstructorID == claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "the batch instructor cannot enroll as a student")
	}

	enrollment := &models.Enrollment{
		UserID:  claims.UserID,
		BatchID: batchID,
		Status:  models.EnrollmentStatusPending,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an enrollment for this batch already exists")
		}
		s.logger.Error("create enrollment failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment requested",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("user_id", claims.UserID),
		zap.String("batch_id", batchID))
	return enrollment, nil
}

// Approve moves an enrollment to APPROVED. The transition is an
// unconditional overwrite of the current status.
func (s *EnrollmentService) Approve(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.setStatus(ctx, id, models.EnrollmentStatusApproved)
}

// Reject moves an enrollment to REJECTED, revoking access if it was
// previously approved.
func (s *EnrollmentService) Reject(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.setStatus(ctx, id, models.EnrollmentStatusRejected)
}

func (s *EnrollmentService) setStatus(ctx context.Context, id string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.logger.Error("find enrollment failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find enrollment")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error("update enrollment status failed", zap.String("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	enrollment.Status = status

	if s.access != nil {
		s.access.Invalidate(ctx, enrollment.UserID, enrollment.BatchID)
	}

	s.logger.Info("enrollment status updated",
		zap.String("enrollment_id", id),
		zap.String("status", string(status)))
	return enrollment, nil
}

// DirectEnroll grants a student APPROVED access without the request
// round-trip. An existing pending or rejected record is upgraded; an
// existing approved record is a conflict.
func (s *EnrollmentService) DirectEnroll(ctx context.Context, req models.DirectEnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		s.logger.Error("direct enroll: resolve user failed", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only students can be enrolled")
	}

	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("direct enroll: resolve batch failed", zap.String("batch_id", req.BatchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}

	existing, err := s.repo.FindByUserAndBatch(ctx, req.UserID, req.BatchID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("direct enroll: lookup enrollment failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lookup enrollment")
	}

	if existing != nil {
		if existing.Status == models.EnrollmentStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this batch")
		}
		return s.setStatus(ctx, existing.ID, models.EnrollmentStatusApproved)
	}

	enrollment := &models.Enrollment{
		UserID:  req.UserID,
		BatchID: req.BatchID,
		Status:  models.EnrollmentStatusApproved,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this batch")
		}
		s.logger.Error("direct enroll: create failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if s.access != nil {
		s.access.Invalidate(ctx, req.UserID, req.BatchID)
	}
	s.logger.Info("student directly enrolled",
		zap.String("user_id", req.UserID),
		zap.String("batch_id", req.BatchID))
	return enrollment, nil
}

// Revoke removes the enrollment record entirely, immediately cutting off
// content access for the pair.
func (s *EnrollmentService) Revoke(ctx context.Context, userID, batchID string) error {
	deleted, err := s.repo.DeleteByUserAndBatch(ctx, userID, batchID)
	if err != nil {
		s.logger.Error("revoke enrollment failed",
			zap.String("user_id", userID),
			zap.String("batch_id", batchID),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke enrollment")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	if s.access != nil {
		s.access.Invalidate(ctx, userID, batchID)
	}
	s.logger.Info("enrollment revoked",
		zap.String("user_id", userID),
		zap.String("batch_id", batchID))
	return nil
}
