package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/middleware"
	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

type batchStoreStub struct {
	batches map[string]*models.Batch
}

func (s *batchStoreStub) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	var batches []models.Batch
	for _, batch := range s.batches {
		batches = append(batches, *batch)
	}
	return batches, len(batches), nil
}

func (s *batchStoreStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return batch, nil
}

func (s *batchStoreStub) Create(ctx context.Context, batch *models.Batch) error {
	batch.ID = "batch-new"
	s.batches[batch.ID] = batch
	return nil
}

func (s *batchStoreStub) Update(ctx context.Context, batch *models.Batch) error { return nil }

func (s *batchStoreStub) DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error) {
	if _, ok := s.batches[id]; !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.batches, id)
	return &models.CascadeResult{BatchID: id}, nil
}

type sectionStoreStub struct {
	sections map[string]*models.Section
}

func (s *sectionStoreStub) ListByBatch(ctx context.Context, batchID string) ([]models.Section, error) {
	var sections []models.Section
	for _, section := range s.sections {
		if section.BatchID == batchID {
			sections = append(sections, *section)
		}
	}
	return sections, nil
}

func (s *sectionStoreStub) FindByID(ctx context.Context, id string) (*models.Section, error) {
	section, ok := s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return section, nil
}

func (s *sectionStoreStub) CountByBatch(ctx context.Context, batchID string) (int, error) {
	return len(s.sections), nil
}

func (s *sectionStoreStub) Create(ctx context.Context, section *models.Section) error { return nil }
func (s *sectionStoreStub) Update(ctx context.Context, section *models.Section) error { return nil }
func (s *sectionStoreStub) DeleteCascade(ctx context.Context, id string) (*models.CascadeResult, error) {
	return &models.CascadeResult{SectionIDs: []string{id}}, nil
}

type lessonListerStub struct{}

func (lessonListerStub) ListBySectionIDs(ctx context.Context, sectionIDs []string) ([]models.Lesson, error) {
	return nil, nil
}

type approvalStub struct {
	approved map[string]bool
}

func (s *approvalStub) ExistsApproved(ctx context.Context, userID, batchID string) (bool, error) {
	return s.approved[userID+"|"+batchID], nil
}

func newBatchHandlerFixture(approved map[string]bool) *BatchHandler {
	batchStore := &batchStoreStub{batches: map[string]*models.Batch{
		"batch-1": {ID: "batch-1", Title: "Go Basics", InstructorID: "admin-1"},
	}}
	sectionStore := &sectionStoreStub{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", BatchID: "batch-1", Title: "Week 1"},
	}}

	access := service.NewAccessService(&approvalStub{approved: approved}, nil, 0, nil, nil)
	batches := service.NewBatchService(batchStore, access, nil, nil, nil)
	sections := service.NewSectionService(sectionStore, batchStore, lessonListerStub{}, nil, nil, nil)
	return NewBatchHandler(batches, sections, access)
}

func newTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestBatchHandlerContentRequiresToken(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	c, w := newTestContext(t, http.MethodGet, "/batches/batch-1/content", nil)
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}

	handler.Content(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBatchHandlerContentForbiddenWithoutApproval(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	c, w := newTestContext(t, http.MethodGet, "/batches/batch-1/content", nil)
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Content(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBatchHandlerContentApprovedStudent(t *testing.T) {
	handler := newBatchHandlerFixture(map[string]bool{"stu-1|batch-1": true})
	c, w := newTestContext(t, http.MethodGet, "/batches/batch-1/content", nil)
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Content(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBatchHandlerContentAdminBypassesGate(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	c, w := newTestContext(t, http.MethodGet, "/batches/batch-1/content", nil)
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Content(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBatchHandlerGetNotFound(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	c, w := newTestContext(t, http.MethodGet, "/batches/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestBatchHandlerCreateInvalidBody(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	c, w := newTestContext(t, http.MethodPost, "/batches", []byte(`not json`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandlerCreate(t *testing.T) {
	handler := newBatchHandlerFixture(nil)
	body, _ := json.Marshal(models.CreateBatchRequest{Title: "New Batch"})
	c, w := newTestContext(t, http.MethodPost, "/batches", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Batch `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "New Batch", envelope.Data.Title)
	assert.Equal(t, "admin-1", envelope.Data.InstructorID)
}
