package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
)

func TestNotificationRepositoryBulkCreateEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	// No recipients, no write.
	require.NoError(t, repo.BulkCreate(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	batchID := "batch-1"
	notifications := []models.Notification{
		{UserID: "stu-1", Type: models.NotificationLessonUploaded, Message: "m", BatchID: &batchID},
		{UserID: "stu-2", Type: models.NotificationLessonUploaded, Message: "m", BatchID: &batchID},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), notifications))
	assert.NotEmpty(t, notifications[0].ID)
	assert.NotEmpty(t, notifications[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	query := regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2")

	mock.ExpectExec(query).
		WithArgs("not-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	affected, err := repo.MarkRead(context.Background(), "not-1", "stu-1")
	require.NoError(t, err)
	assert.True(t, affected)

	// A notification owned by someone else is not touched.
	mock.ExpectExec(query).
		WithArgs("not-1", "stu-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	affected, err = repo.MarkRead(context.Background(), "not-1", "stu-2")
	require.NoError(t, err)
	assert.False(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkAllRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 5))

	updated, err := repo.MarkAllRead(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 5, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByUserUnreadOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "notification_type", "message", "batch_id", "lesson_id", "read", "created_at"}).
		AddRow("not-1", "stu-1", models.NotificationNoteAdded, "m", nil, nil, false, time.Now())
	mock.ExpectQuery(`SELECT id, user_id, notification_type, .+ FROM notifications WHERE user_id = \$1 AND read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND read = FALSE`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notifications, total, err := repo.ListByUser(context.Background(), "stu-1", models.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCountUnread(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND read = FALSE`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountUnread(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
