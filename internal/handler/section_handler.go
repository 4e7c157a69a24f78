package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
	"github.com/teachhub/teachhub-api/pkg/response"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

// SectionHandler exposes section management endpoints.
type SectionHandler struct {
	sections *service.SectionService
	lessons  *service.LessonService
	access   *service.AccessService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService, lessons *service.LessonService, access *service.AccessService) *SectionHandler {
	return &SectionHandler{sections: sections, lessons: lessons, access: access}
}

// Create godoc
// @Summary Create a section in a batch
// @Tags Sections
// @Accept json
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param payload body models.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /batches/{batchId}/sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req models.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), c.Param("batchId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Lessons godoc
// @Summary List a section's lessons
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/lessons [get]
func (h *SectionHandler) Lessons(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.access.CanRead(c.Request.Context(), claimsFromContext(c), section.BatchID); err != nil {
		response.Error(c, err)
		return
	}

	lessons, err := h.lessons.ListBySection(c.Request.Context(), section.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Update godoc
// @Summary Update a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body models.UpdateSectionRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req models.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Delete godoc
// @Summary Delete a section with its lessons and notes
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	result, err := h.sections.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
