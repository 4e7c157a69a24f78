package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
	"github.com/teachhub/teachhub-api/pkg/response"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

// NoteHandler exposes note endpoints under lessons.
type NoteHandler struct {
	notes    *service.NoteService
	lessons  *service.LessonService
	sections *service.SectionService
	access   *service.AccessService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *service.NoteService, lessons *service.LessonService, sections *service.SectionService, access *service.AccessService) *NoteHandler {
	return &NoteHandler{notes: notes, lessons: lessons, sections: sections, access: access}
}

// List godoc
// @Summary List a lesson's notes
// @Tags Notes
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{lessonId}/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	lesson, err := h.lessons.Get(c.Request.Context(), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	section, err := h.sections.Get(c.Request.Context(), lesson.SectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.access.CanRead(c.Request.Context(), claimsFromContext(c), section.BatchID); err != nil {
		response.Error(c, err)
		return
	}

	notes, err := h.notes.ListByLesson(c.Request.Context(), lesson.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, nil)
}

// Create godoc
// @Summary Attach a note to a lesson
// @Tags Notes
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param payload body models.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /lessons/{lessonId}/notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req models.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Create(c.Request.Context(), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Update godoc
// @Summary Update a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body models.UpdateNoteRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	var req models.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
