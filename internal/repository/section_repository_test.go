package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
)

func TestSectionRepositoryListByBatchOrdersByPosition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "batch_id", "title", "position", "created_at", "updated_at"}).
		AddRow("sec-1", "batch-1", "Week 1", 0, time.Now(), time.Now()).
		AddRow("sec-2", "batch-1", "Week 2", 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, batch_id, title, position, created_at, updated_at FROM sections WHERE batch_id = $1 ORDER BY position ASC")).
		WithArgs("batch-1").
		WillReturnRows(rows)

	sections, err := repo.ListByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Week 1", sections[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCountByBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sections WHERE batch_id = \$1`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryDeleteCascadeEmptySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM sections WHERE id = \$1`).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, COALESCE\(video_key, ''\) AS video_key FROM lessons WHERE section_id IN`).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_key"}))
	mock.ExpectExec(`DELETE FROM sections WHERE id = \$1`).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.DeleteCascade(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sec-1"}, result.SectionIDs)
	assert.Empty(t, result.LessonIDs)
	assert.Empty(t, result.StorageKeys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryDeleteCascadeNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM sections WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(`INSERT INTO sections`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	section := &models.Section{BatchID: "batch-1", Title: "Week 1"}
	require.NoError(t, repo.Create(context.Background(), section))
	assert.NotEmpty(t, section.ID)
	assert.False(t, section.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
