package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"

	"github.com/teachhub/teachhub-api/internal/models"
)

type notificationRepository interface {
	BulkCreate(ctx context.Context, notifications []models.Notification) error
	ListByUser(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type sectionResolver interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type batchResolver interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type approvedEnrollmentLister interface {
	ListApprovedByBatch(ctx context.Context, batchID string) ([]models.EnrollmentDetail, error)
}

// NotificationService fans content events out to enrolled students and
// serves each student's notification feed.
type NotificationService struct {
	repo        notificationRepository
	sections    sectionResolver
	batches     batchResolver
	enrollments approvedEnrollmentLister
	metrics     *MetricsService
	logger      *zap.Logger
}

func NewNotificationService(
	repo notificationRepository,
	sections sectionResolver,
	batches batchResolver,
	enrollments approvedEnrollmentLister,
	metrics *MetricsService,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:        repo,
		sections:    sections,
		batches:     batches,
		enrollments: enrollments,
		metrics:     metrics,
		logger:      logger,
	}
}

// FanoutToSection notifies every approved student of the batch owning the
// given section. Failures are logged and swallowed: a content write must
// never be rolled back because its announcement could not be delivered.
// The subject is the title of the lesson or note the event is about.
func (s *NotificationService) FanoutToSection(ctx context.Context, sectionID string, event models.NotificationType, subject string, lessonID *string) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("fanout: resolve section failed",
				zap.String("section_id", sectionID),
				zap.String("event", string(event)),
				zap.Error(err))
			s.metrics.ObserveFanout(0, true)
		}
		return
	}
	s.FanoutToBatch(ctx, section.BatchID, event, subject, lessonID)
}

// FanoutToBatch writes one notification per approved enrollment of the batch.
func (s *NotificationService) FanoutToBatch(ctx context.Context, batchID string, event models.NotificationType, subject string, lessonID *string) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("fanout: resolve batch failed",
				zap.String("batch_id", batchID),
				zap.String("event", string(event)),
				zap.Error(err))
			s.metrics.ObserveFanout(0, true)
		}
		return
	}

	enrollees, err := s.enrollments.ListApprovedByBatch(ctx, batchID)
	if err != nil {
		s.logger.Warn("fanout: list recipients failed",
			zap.String("batch_id", batchID),
			zap.String("event", string(event)),
			zap.Error(err))
		s.metrics.ObserveFanout(0, true)
		return
	}
	if len(enrollees) == 0 {
		s.metrics.ObserveFanout(0, false)
		return
	}

	message := eventMessage(event, batch.Title, subject)
	notifications := make([]models.Notification, 0, len(enrollees))
	for _, enrollee := range enrollees {
		notifications = append(notifications, models.Notification{
			UserID:   enrollee.UserID,
			Type:     event,
			Message:  message,
			BatchID:  &batchID,
			LessonID: lessonID,
		})
	}

	if err := s.repo.BulkCreate(ctx, notifications); err != nil {
		s.logger.Warn("fanout: bulk insert failed",
			zap.String("batch_id", batchID),
			zap.String("event", string(event)),
			zap.Int("recipients", len(notifications)),
			zap.Error(err))
		s.metrics.ObserveFanout(0, true)
		return
	}

	s.metrics.ObserveFanout(len(notifications), false)
	s.logger.Debug("fanout delivered",
		zap.String("batch_id", batchID),
		zap.String("event", string(event)),
		zap.Int("recipients", len(notifications)))
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	notifications, total, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		s.logger.Error("list notifications failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return notifications, pagination, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	affected, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		s.logger.Error("mark notification read failed", zap.String("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !affected {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read and
// returns how many were updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("mark all notifications read failed", zap.String("user_id", userID), zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark all notifications read")
	}
	return updated, nil
}

// UnreadCount returns the caller's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("count unread notifications failed", zap.String("user_id", userID), zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

// eventMessage keeps notification wording consistent across content events.
func eventMessage(event models.NotificationType, batchTitle, subject string) string {
	switch event {
	case models.NotificationLessonUploaded:
		return fmt.Sprintf("New lesson %q was added to %s", subject, batchTitle)
	case models.NotificationNoteAdded:
		return fmt.Sprintf("New note %q was added to %s", subject, batchTitle)
	case models.NotificationLiveScheduled:
		return fmt.Sprintf("Live class %q was scheduled in %s", subject, batchTitle)
	case models.NotificationLiveStarted:
		return fmt.Sprintf("Live class %q is starting now in %s", subject, batchTitle)
	case models.NotificationRecordingUploaded:
		return fmt.Sprintf("Recording for %q is now available in %s", subject, batchTitle)
	default:
		return fmt.Sprintf("%s was updated", batchTitle)
	}
}
