package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
)

type noteRepoMock struct {
	byID    map[string]*models.Note
	created []*models.Note
	updated *models.Note
	deleted []string
}

func newNoteRepoMock() *noteRepoMock {
	return &noteRepoMock{byID: make(map[string]*models.Note)}
}

func (m *noteRepoMock) ListByLesson(ctx context.Context, lessonID string) ([]models.Note, error) {
	var notes []models.Note
	for _, note := range m.byID {
		if note.LessonID == lessonID {
			notes = append(notes, *note)
		}
	}
	return notes, nil
}

func (m *noteRepoMock) FindByID(ctx context.Context, id string) (*models.Note, error) {
	note, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *note
	return &copied, nil
}

func (m *noteRepoMock) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = "note-new"
	}
	m.created = append(m.created, note)
	m.byID[note.ID] = note
	return nil
}

func (m *noteRepoMock) Update(ctx context.Context, note *models.Note) error {
	m.updated = note
	return nil
}

func (m *noteRepoMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

func newNoteFixture() (*NoteService, *noteRepoMock, *notifierMock, *cleanerMock) {
	repo := newNoteRepoMock()
	lessons := newLessonRepoMock()
	lessons.byID["les-1"] = &models.Lesson{ID: "les-1", SectionID: "sec-1", Title: "Pointers", Type: models.LessonTypeRecorded}
	notifier := &notifierMock{}
	cleaner := &cleanerMock{}
	return NewNoteService(repo, lessons, notifier, cleaner, nil, nil), repo, notifier, cleaner
}

func TestNoteCreateNotifiesEnrollees(t *testing.T) {
	svc, repo, notifier, _ := newNoteFixture()

	note, err := svc.Create(context.Background(), "les-1", models.CreateNoteRequest{
		Title:   "Slides",
		FileURL: "https://cdn.example/notes/slides.pdf",
		FileKey: "notes/slides.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "les-1", note.LessonID)
	assert.Len(t, repo.created, 1)

	require.Len(t, notifier.calls, 1)
	call := notifier.calls[0]
	assert.Equal(t, "sec-1", call.sectionID)
	assert.Equal(t, models.NotificationNoteAdded, call.event)
	assert.Equal(t, "Slides", call.subject)
	require.NotNil(t, call.lessonID)
	assert.Equal(t, "les-1", *call.lessonID)
}

func TestNoteCreateUnknownLesson(t *testing.T) {
	svc, _, notifier, _ := newNoteFixture()

	_, err := svc.Create(context.Background(), "missing", models.CreateNoteRequest{
		Title:   "Slides",
		FileURL: "https://cdn.example/notes/slides.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
	assert.Empty(t, notifier.calls)
}

func TestNoteCreateMissingFileURL(t *testing.T) {
	svc, _, _, _ := newNoteFixture()

	_, err := svc.Create(context.Background(), "les-1", models.CreateNoteRequest{Title: "Slides"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestNoteUpdateKeepsFileReference(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	repo.byID["note-1"] = &models.Note{
		ID:       "note-1",
		LessonID: "les-1",
		Title:    "Slides",
		FileURL:  "https://cdn.example/notes/slides.pdf",
		FileKey:  "notes/slides.pdf",
	}

	note, err := svc.Update(context.Background(), "note-1", models.UpdateNoteRequest{Title: "Slides v2"})
	require.NoError(t, err)
	assert.Equal(t, "Slides v2", note.Title)
	assert.Equal(t, "https://cdn.example/notes/slides.pdf", note.FileURL)
	assert.Equal(t, "notes/slides.pdf", note.FileKey)
}

func TestNoteDeleteEnqueuesFileKey(t *testing.T) {
	svc, repo, _, cleaner := newNoteFixture()
	repo.byID["note-1"] = &models.Note{ID: "note-1", LessonID: "les-1", Title: "Slides", FileKey: "notes/slides.pdf"}

	require.NoError(t, svc.Delete(context.Background(), "note-1"))
	assert.Equal(t, []string{"note-1"}, repo.deleted)
	assert.Equal(t, []string{"notes/slides.pdf"}, cleaner.keys)
}

func TestNoteDeleteNotFound(t *testing.T) {
	svc, _, _, _ := newNoteFixture()

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
