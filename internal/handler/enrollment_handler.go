package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

// EnrollmentHandler exposes the staged enrollment queue endpoints. It also
// serves the combined new-requests badge, which peeks at the collaboration
// queue alongside the enrollment queues.
type EnrollmentHandler struct {
	enrollments    *service.EnrollmentService
	collaborations *service.CollaborationService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, collaborations *service.CollaborationService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, collaborations: collaborations}
}

type enrollRequest struct {
	SubjectID string `json:"subjectID"`
}

type resolveRequest struct {
	SubjectID    string `json:"subjectID"`
	StudentEmail string `json:"studentEmail"`
	Action       string `json:"action"`
}

type bulkResolveRequest struct {
	SubjectID string `json:"subjectID"`
	Action    string `json:"action"`
}

// Request godoc
// @Summary Request enrollment in a subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body enrollRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /student/enroll [post]
func (h *EnrollmentHandler) Request(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.enrollments.Request(c.Request.Context(), req.SubjectID, claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "enrollment request submitted")
}

// List godoc
// @Summary Pending requests for a subject
// @Tags Enrollments
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/enrollment-requests/{subjectID} [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	requests, err := h.enrollments.List(c.Request.Context(), c.Param("subjectID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"requests": requests})
}

// PendingForFaculty godoc
// @Summary Pending requests across the faculty's subjects
// @Tags Enrollments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /faculty/enrollment-requests [get]
func (h *EnrollmentHandler) PendingForFaculty(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	groups, err := h.enrollments.PendingForFaculty(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"enrollmentRequests": groups})
}

// NewRequests godoc
// @Summary Whether anything awaits the faculty's attention
// @Tags Enrollments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /faculty/new-requests [get]
func (h *EnrollmentHandler) NewRequests(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollment, err := h.enrollments.HasPending(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	collab, err := h.collaborations.HasPending(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"enrollmentRequest": enrollment, "collabRequest": collab})
}

// Resolve godoc
// @Summary Approve or reject one enrollment request
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body resolveRequest true "Subject, student and action"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/enroll-student [post]
func (h *EnrollmentHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	action := models.ResolveAction(req.Action)
	if err := h.enrollments.Resolve(c.Request.Context(), claims.Email, req.SubjectID, req.StudentEmail, action); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "request "+req.Action+"d")
}

// BulkResolve godoc
// @Summary Approve or reject every staged request of a subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body bulkResolveRequest true "Subject and action"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/bulk-enroll [post]
func (h *EnrollmentHandler) BulkResolve(c *gin.Context) {
	var req bulkResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.enrollments.BulkResolve(c.Request.Context(), claims.Email, req.SubjectID, models.ResolveAction(req.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"resolved": result.Resolved, "skipped": result.Skipped})
}

// PendingForStudent godoc
// @Summary Subjects where the calling student awaits approval
// @Tags Enrollments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /student/pending-enrollments [post]
func (h *EnrollmentHandler) PendingForStudent(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	subjects, err := h.enrollments.PendingSubjects(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subjects": subjects})
}
