package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/services"
	"github.com/brightclass/assessment-service/internal/utils"
	"github.com/brightclass/assessment-service/internal/validator"
)

// CourseHandler covers enrollment and gradebook export. Course
// authoring itself lives in the course service; this service only
// consumes course structure.
type CourseHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
	exportService     services.ExportService
	validator         *validator.Validator
}

func NewCourseHandler(
	enrollmentService services.EnrollmentService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *CourseHandler {
	return &CourseHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
		exportService:     exportService,
		validator:         validator,
	}
}

// Enroll enrolls the caller in a course
// @Summary Enroll in course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollRequest true "Enrollment data"
// @Success 201 {object} services.EnrollmentResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /enrollments [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	h.LogRequest(c, "Enrolling in course")

	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// Drop drops the caller's enrollment in a course
// @Summary Drop course
// @Tags enrollments
// @Param course_id path uint true "Course ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{course_id} [delete]
func (h *CourseHandler) Drop(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.enrollmentService.Drop(c.Request.Context(), courseID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Enrollment dropped"})
}

// ListEnrollments lists enrollments visible to the caller
// @Summary List enrollments
// @Tags enrollments
// @Produce json
// @Param course_id query uint false "Filter by course"
// @Param status query string false "Filter by status"
// @Success 200 {object} SuccessResponse
// @Router /enrollments [get]
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := repositories.EnrollmentFilters{}
	if raw := c.Query("course_id"); raw != "" {
		if id, perr := strconv.ParseUint(raw, 10, 32); perr == nil {
			courseID := uint(id)
			filters.CourseID = &courseID
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := models.EnrollmentStatus(raw)
		filters.Status = &status
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	enrollments, total, err := h.enrollmentService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enrollments": enrollments,
		"total":       total,
	})
}

// ExportGradebook exports graded attempts as an xlsx workbook
// @Summary Export gradebook
// @Description Renders graded attempts to xlsx and returns a signed download URL
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/export [post]
func (h *CourseHandler) ExportGradebook(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	h.LogRequest(c, "Exporting gradebook", "assessment_id", assessmentID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	url, err := h.exportService.ExportGradebook(c.Request.Context(), assessmentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}
