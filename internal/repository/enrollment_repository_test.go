package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
)

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{UserID: "stu-1", BatchID: "batch-1"})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{UserID: "stu-1", BatchID: "batch-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsApproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE user_id = $1 AND batch_id = $2 AND status = $3 LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs("stu-1", "batch-1", models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	approved, err := repo.ExistsApproved(context.Background(), "stu-1", "batch-1")
	require.NoError(t, err)
	assert.True(t, approved)

	mock.ExpectQuery(query).
		WithArgs("stu-2", "batch-1", models.EnrollmentStatusApproved).
		WillReturnError(sql.ErrNoRows)

	approved, err = repo.ExistsApproved(context.Background(), "stu-2", "batch-1")
	require.NoError(t, err)
	assert.False(t, approved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusApproved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteByUserAndBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("DELETE FROM enrollments WHERE user_id = $1 AND batch_id = $2")

	mock.ExpectExec(query).
		WithArgs("stu-1", "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	deleted, err := repo.DeleteByUserAndBatch(context.Background(), "stu-1", "batch-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec(query).
		WithArgs("stu-2", "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	deleted, err = repo.DeleteByUserAndBatch(context.Background(), "stu-2", "batch-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListApprovedByBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "batch_id", "status", "created_at", "updated_at", "student_name", "student_email", "batch_title"}).
		AddRow("enr-1", "stu-1", "batch-1", models.EnrollmentStatusApproved, time.Now(), time.Now(), "Jane Doe", "jane@example.com", "Go Basics").
		AddRow("enr-2", "stu-2", "batch-1", models.EnrollmentStatusApproved, time.Now(), time.Now(), "John Roe", "john@example.com", "Go Basics")
	mock.ExpectQuery(`SELECT e\.id, e\.user_id, .+ WHERE e\.batch_id = \$1 AND e\.status = \$2`).
		WithArgs("batch-1", models.EnrollmentStatusApproved).
		WillReturnRows(rows)

	enrollments, err := repo.ListApprovedByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "Jane Doe", enrollments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByBatchWithStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE batch_id = \$1 AND status = \$2`).
		WithArgs("batch-1", models.EnrollmentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByBatch(context.Background(), "batch-1", models.EnrollmentStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
