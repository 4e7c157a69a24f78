package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
)

type accessEnrollmentsMock struct {
	approved map[string]bool
	err      error
	calls    int
}

func (m *accessEnrollmentsMock) ExistsApproved(ctx context.Context, userID, batchID string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.approved[userID+"|"+batchID], nil
}

type accessCacheMock struct {
	values   map[string]bool
	patterns []string
}

func newAccessCacheMock() *accessCacheMock {
	return &accessCacheMock{values: make(map[string]bool)}
}

func (m *accessCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*bool) = value
	return nil
}

func (m *accessCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value.(bool)
	return nil
}

func (m *accessCacheMock) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *accessCacheMock) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func TestAccessServiceNilClaims(t *testing.T) {
	svc := NewAccessService(&accessEnrollmentsMock{}, nil, 0, nil, nil)

	err := svc.CanRead(context.Background(), nil, "batch-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAccessServiceAdminAlwaysPasses(t *testing.T) {
	enrollments := &accessEnrollmentsMock{}
	svc := NewAccessService(enrollments, nil, 0, nil, nil)

	err := svc.CanRead(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, "batch-1")
	require.NoError(t, err)
	assert.Zero(t, enrollments.calls)
}

func TestAccessServiceApprovedStudent(t *testing.T) {
	enrollments := &accessEnrollmentsMock{approved: map[string]bool{"stu-1|batch-1": true}}
	svc := NewAccessService(enrollments, nil, 0, nil, nil)

	require.NoError(t, svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1"))
}

func TestAccessServiceUnenrolledStudentForbidden(t *testing.T) {
	svc := NewAccessService(&accessEnrollmentsMock{}, nil, 0, nil, nil)

	err := svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAccessServiceLookupErrorMapsToInternal(t *testing.T) {
	svc := NewAccessService(&accessEnrollmentsMock{err: errors.New("db down")}, nil, 0, nil, nil)

	err := svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestAccessServiceCachesDecision(t *testing.T) {
	enrollments := &accessEnrollmentsMock{approved: map[string]bool{"stu-1|batch-1": true}}
	cache := newAccessCacheMock()
	svc := NewAccessService(enrollments, cache, time.Minute, nil, nil)

	require.NoError(t, svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1"))
	assert.Equal(t, 1, enrollments.calls)
	assert.True(t, cache.values["access:batch-1:stu-1"])

	// Second read is served entirely from the cache.
	require.NoError(t, svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1"))
	assert.Equal(t, 1, enrollments.calls)
}

func TestAccessServiceCachesNegativeDecision(t *testing.T) {
	enrollments := &accessEnrollmentsMock{}
	cache := newAccessCacheMock()
	svc := NewAccessService(enrollments, cache, time.Minute, nil, nil)

	err := svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1")
	require.Error(t, err)

	err = svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1")
	require.Error(t, err)
	assert.Equal(t, 1, enrollments.calls)
}

func TestAccessServiceInvalidate(t *testing.T) {
	enrollments := &accessEnrollmentsMock{}
	cache := newAccessCacheMock()
	cache.values["access:batch-1:stu-1"] = false
	svc := NewAccessService(enrollments, cache, time.Minute, nil, nil)

	svc.Invalidate(context.Background(), "stu-1", "batch-1")
	_, ok := cache.values["access:batch-1:stu-1"]
	assert.False(t, ok)

	// After invalidation the store is consulted again.
	enrollments.approved = map[string]bool{"stu-1|batch-1": true}
	require.NoError(t, svc.CanRead(context.Background(), studentClaims("stu-1"), "batch-1"))
	assert.Equal(t, 1, enrollments.calls)
}

func TestAccessServiceInvalidateBatch(t *testing.T) {
	cache := newAccessCacheMock()
	svc := NewAccessService(&accessEnrollmentsMock{}, cache, time.Minute, nil, nil)

	svc.InvalidateBatch(context.Background(), "batch-9")
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, fmt.Sprintf("access:%s:*", "batch-9"), cache.patterns[0])
}
