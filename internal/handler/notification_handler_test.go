package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/middleware"
	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

type notificationStoreStub struct {
	notifications []models.Notification
	markedRead    bool
	markedAll     int
	unread        int
}

func (s *notificationStoreStub) BulkCreate(ctx context.Context, notifications []models.Notification) error {
	return nil
}

func (s *notificationStoreStub) ListByUser(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.notifications, len(s.notifications), nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	return s.markedRead, nil
}

func (s *notificationStoreStub) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.markedAll, nil
}

func (s *notificationStoreStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

func newNotificationHandlerFixture(store *notificationStoreStub) *NotificationHandler {
	svc := service.NewNotificationService(store, nil, nil, nil, nil, nil)
	return NewNotificationHandler(svc)
}

func TestNotificationHandlerListRequiresToken(t *testing.T) {
	handler := newNotificationHandlerFixture(&notificationStoreStub{})
	c, w := newTestContext(t, http.MethodGet, "/notifications", nil)

	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationHandlerList(t *testing.T) {
	store := &notificationStoreStub{notifications: []models.Notification{
		{ID: "ntf-1", UserID: "stu-1", Message: "New lesson"},
	}}
	handler := newNotificationHandlerFixture(store)
	c, w := newTestContext(t, http.MethodGet, "/notifications?unread=true", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.Notification `json:"data"`
		Pagination *models.Pagination    `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "ntf-1", envelope.Data[0].ID)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestNotificationHandlerUnreadCount(t *testing.T) {
	handler := newNotificationHandlerFixture(&notificationStoreStub{unread: 4})
	c, w := newTestContext(t, http.MethodGet, "/notifications/unread-count", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 4, envelope.Data["unread"])
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	handler := newNotificationHandlerFixture(&notificationStoreStub{markedRead: true})
	c, w := newTestContext(t, http.MethodPut, "/notifications/ntf-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "ntf-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.MarkRead(c)
	// gin buffers a body-less status; flush it to the recorder before asserting.
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNotificationHandlerMarkReadNotOwned(t *testing.T) {
	handler := newNotificationHandlerFixture(&notificationStoreStub{markedRead: false})
	c, w := newTestContext(t, http.MethodPut, "/notifications/ntf-9/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "ntf-9"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	handler := newNotificationHandlerFixture(&notificationStoreStub{markedAll: 7})
	c, w := newTestContext(t, http.MethodPut, "/notifications/read-all", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.MarkAllRead(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 7, envelope.Data["updated"])
}
