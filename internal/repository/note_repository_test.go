package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
)

func TestNoteRepositoryCreateNilDescription(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	note := &models.Note{
		LessonID: "les-1",
		Title:    "Slides",
		FileURL:  "https://cdn.example/notes/slides.pdf",
		FileKey:  "notes/slides.pdf",
	}

	mock.ExpectExec(`INSERT INTO notes`).
		WithArgs(sqlmock.AnyArg(), "les-1", "Slides", nil, "https://cdn.example/notes/slides.pdf", "notes/slides.pdf", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), note))
	assert.NotEmpty(t, note.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
