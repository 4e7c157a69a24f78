package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"

	"github.com/teachhub/teachhub-api/internal/models"
)

type approvedEnrollmentChecker interface {
	ExistsApproved(ctx context.Context, userID, batchID string) (bool, error)
}

type accessCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AccessService is the read gate for batch content. Admins always pass;
// everyone else needs an approved enrollment in the batch. Decisions are
// cached in Redis with a short TTL and invalidated on enrollment mutations.
type AccessService struct {
	enrollments approvedEnrollmentChecker
	cache       accessCache
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

func NewAccessService(
	enrollments approvedEnrollmentChecker,
	cache accessCache,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AccessService{
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// CanRead reports whether the caller may read content under the batch.
// A nil claims value means the request carried no valid token and maps to
// ErrUnauthorized; an authenticated caller without an approved enrollment
// maps to ErrForbidden.
func (s *AccessService) CanRead(ctx context.Context, claims *models.JWTClaims, batchID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}

	approved, err := s.lookupApproved(ctx, claims.UserID, batchID)
	if err != nil {
		s.logger.Error("access check failed",
			zap.String("user_id", claims.UserID),
			zap.String("batch_id", batchID),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify batch access")
	}
	if !approved {
		return appErrors.Clone(appErrors.ErrForbidden, "approved enrollment required to access this batch")
	}
	return nil
}

func (s *AccessService) lookupApproved(ctx context.Context, userID, batchID string) (bool, error) {
	key := accessCacheKey(userID, batchID)

	if s.cache != nil {
		var cached bool
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.ObserveAccessCache(true)
			return cached, nil
		}
		s.metrics.ObserveAccessCache(false)
	}

	approved, err := s.enrollments.ExistsApproved(ctx, userID, batchID)
	if err != nil {
		return false, fmt.Errorf("check approved enrollment: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, approved, s.cacheTTL); err != nil {
			s.logger.Warn("cache access decision failed", zap.String("key", key), zap.Error(err))
		}
	}
	return approved, nil
}

// Invalidate drops the cached decision for one user and batch. Called after
// any enrollment mutation touching that pair.
func (s *AccessService) Invalidate(ctx context.Context, userID, batchID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, accessCacheKey(userID, batchID)); err != nil {
		s.logger.Warn("invalidate access cache failed",
			zap.String("user_id", userID),
			zap.String("batch_id", batchID),
			zap.Error(err))
	}
}

// InvalidateBatch drops every cached decision for a batch. Called when a
// batch cascade removes its enrollments wholesale.
func (s *AccessService) InvalidateBatch(ctx context.Context, batchID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("access:%s:*", batchID)); err != nil {
		s.logger.Warn("invalidate batch access cache failed", zap.String("batch_id", batchID), zap.Error(err))
	}
}

func accessCacheKey(userID, batchID string) string {
	return fmt.Sprintf("access:%s:%s", batchID, userID)
}
