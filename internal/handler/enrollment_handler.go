package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
	"github.com/teachhub/teachhub-api/pkg/response"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

// EnrollmentHandler exposes the enrollment state machine endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param userId query string false "Filter by student"
// @Param batchId query string false "Filter by batch"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.UserID = c.Query("userId")
	filter.BatchID = c.Query("batchId")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		filter.Status = models.EnrollmentStatus(status)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Mine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.EnrollmentFilter{UserID: claims.UserID}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Request godoc
// @Summary Request enrollment in a batch
// @Tags Enrollments
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 201 {object} response.Envelope
// @Router /batches/{batchId}/enroll [post]
func (h *EnrollmentHandler) Request(c *gin.Context) {
	enrollment, err := h.enrollments.Request(c.Request.Context(), claimsFromContext(c), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Approve godoc
// @Summary Approve an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/approve [put]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	enrollment, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Reject godoc
// @Summary Reject an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/reject [put]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	enrollment, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// DirectEnroll godoc
// @Summary Directly enroll a student with approved access
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.DirectEnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) DirectEnroll(c *gin.Context) {
	var req models.DirectEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.DirectEnroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Revoke godoc
// @Summary Revoke a student's enrollment in a batch
// @Tags Enrollments
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /batches/{batchId}/enrollments/{userId} [delete]
func (h *EnrollmentHandler) Revoke(c *gin.Context) {
	if err := h.enrollments.Revoke(c.Request.Context(), c.Param("userId"), c.Param("batchId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
