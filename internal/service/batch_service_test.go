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

type batchRepoMock struct {
	byID       map[string]*models.Batch
	listResult []models.Batch
	listTotal  int
	created    []*models.Batch
	updated    *models.Batch
	cascade    *models.CascadeResult
	cascadeErr error
}

func newBatchRepoMock() *batchRepoMock {
	return &batchRepoMock{byID: make(map[string]*models.Batch)}
}

func (m *batchRepoMock) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *batchRepoMock) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	batch, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *batch
	return &copied, nil
}

func (m *batchRepoMock) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = "batch-new"
	}
	m.created = append(m.created, batch)
	m.byID[batch.ID] = batch
	return nil
}

func (m *batchRepoMock) Update(ctx context.Context, batch *models.Batch) error {
	m.updated = batch
	return nil
}

func (m *batchRepoMock) DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error) {
	if m.cascadeErr != nil {
		return nil, m.cascadeErr
	}
	return m.cascade, nil
}

func newBatchFixture() (*BatchService, *batchRepoMock, *cleanerMock, *accessCacheMock) {
	repo := newBatchRepoMock()
	cleaner := &cleanerMock{}
	cache := newAccessCacheMock()
	access := NewAccessService(&accessEnrollmentsMock{}, cache, 0, nil, nil)
	return NewBatchService(repo, access, cleaner, nil, nil), repo, cleaner, cache
}

func TestBatchListClampsPagination(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()
	repo.listResult = []models.Batch{{ID: "batch-1"}}
	repo.listTotal = 41

	batches, pagination, err := svc.List(context.Background(), models.BatchFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestBatchCreate(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()

	batch, err := svc.Create(context.Background(), "admin-1", models.CreateBatchRequest{
		Title:       "  Go Basics  ",
		Description: "An introduction",
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", batch.Title)
	assert.Equal(t, "admin-1", batch.InstructorID)
	assert.Len(t, repo.created, 1)
}

func TestBatchCreateBlankTitle(t *testing.T) {
	svc, _, _, _ := newBatchFixture()

	_, err := svc.Create(context.Background(), "admin-1", models.CreateBatchRequest{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestBatchUpdateNonEmptyWins(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()
	repo.byID["batch-1"] = &models.Batch{ID: "batch-1", Title: "Go Basics", Description: "Old"}

	batch, err := svc.Update(context.Background(), "batch-1", models.UpdateBatchRequest{Description: "New description"})
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", batch.Title)
	assert.Equal(t, "New description", batch.Description)
}

func TestBatchUpdateReplacedThumbnailCleanedUp(t *testing.T) {
	svc, repo, cleaner, _ := newBatchFixture()
	oldKey := "thumbs/old.jpg"
	oldURL := "https://cdn.example/thumbs/old.jpg"
	repo.byID["batch-1"] = &models.Batch{ID: "batch-1", Title: "Go Basics", ThumbnailURL: &oldURL, ThumbnailKey: &oldKey}

	newURL := "https://cdn.example/thumbs/new.jpg"
	newKey := "thumbs/new.jpg"
	batch, err := svc.Update(context.Background(), "batch-1", models.UpdateBatchRequest{
		ThumbnailURL: &newURL,
		ThumbnailKey: &newKey,
	})
	require.NoError(t, err)
	require.NotNil(t, batch.ThumbnailKey)
	assert.Equal(t, "thumbs/new.jpg", *batch.ThumbnailKey)
	assert.Equal(t, []string{"thumbs/old.jpg"}, cleaner.keys)
}

func TestBatchGetNotFound(t *testing.T) {
	svc, _, _, _ := newBatchFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestBatchDeleteCascade(t *testing.T) {
	svc, repo, cleaner, cache := newBatchFixture()
	repo.cascade = &models.CascadeResult{
		BatchID:     "batch-1",
		SectionIDs:  []string{"sec-1"},
		LessonIDs:   []string{"les-1"},
		NoteIDs:     []string{"note-1"},
		Enrollments: 5,
		StorageKeys: []string{"videos/a.mp4", "notes/a.pdf", "thumbs/t.jpg"},
	}

	result, err := svc.Delete(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Enrollments)
	assert.Equal(t, []string{"videos/a.mp4", "notes/a.pdf", "thumbs/t.jpg"}, cleaner.keys)

	// Every cached access decision for the batch is dropped.
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "access:batch-1:*", cache.patterns[0])
}

func TestBatchDeleteNotFound(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()
	repo.cascadeErr = sql.ErrNoRows

	_, err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
