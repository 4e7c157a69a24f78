package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
	"github.com/teachhub/teachhub-api/pkg/response"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

// LessonHandler exposes lesson endpoints covering both the recorded and
// live paths.
type LessonHandler struct {
	lessons  *service.LessonService
	sections *service.SectionService
	access   *service.AccessService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons *service.LessonService, sections *service.SectionService, access *service.AccessService) *LessonHandler {
	return &LessonHandler{lessons: lessons, sections: sections, access: access}
}

func (h *LessonHandler) gate(c *gin.Context, lesson *models.Lesson) bool {
	section, err := h.sections.Get(c.Request.Context(), lesson.SectionID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if err := h.access.CanRead(c.Request.Context(), claimsFromContext(c), section.BatchID); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// Get godoc
// @Summary Get one lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.lessons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.gate(c, lesson) {
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Create a lesson in a section
// @Tags Lessons
// @Accept json
// @Produce json
// @Param sectionId path string true "Section ID"
// @Param payload body models.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Router /sections/{sectionId}/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req models.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Update a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body models.UpdateLessonRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req models.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// StartLive godoc
// @Summary Start a scheduled live class
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/live/start [post]
func (h *LessonHandler) StartLive(c *gin.Context) {
	lesson, err := h.lessons.StartLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// EndLive godoc
// @Summary End a running live class
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/live/end [post]
func (h *LessonHandler) EndLive(c *gin.Context) {
	lesson, err := h.lessons.EndLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// AttachRecording godoc
// @Summary Attach a recording to a live class
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body models.AttachRecordingRequest true "Recording payload"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/recording [post]
func (h *LessonHandler) AttachRecording(c *gin.Context) {
	var req models.AttachRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.AttachRecording(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete a lesson and its notes
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	result, err := h.lessons.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
