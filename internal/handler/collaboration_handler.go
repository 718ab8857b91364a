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

// CollaborationHandler exposes faculty collaboration invite endpoints.
type CollaborationHandler struct {
	collaborations *service.CollaborationService
}

// NewCollaborationHandler constructs CollaborationHandler.
func NewCollaborationHandler(collaborations *service.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{collaborations: collaborations}
}

type inviteRequest struct {
	SubjectID    string `json:"subjectID"`
	FacultyEmail string `json:"facultyEmail"`
}

type respondRequest struct {
	SubjectID string `json:"subjectID"`
	Action    string `json:"action"`
}

// Invite godoc
// @Summary Invite another faculty to co-teach a subject
// @Tags Collaborations
// @Accept json
// @Produce json
// @Param payload body inviteRequest true "Subject and target faculty"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/add-faculty [post]
func (h *CollaborationHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.collaborations.Invite(c.Request.Context(), req.SubjectID, claims.Email, req.FacultyEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "collaboration request sent")
}

// List godoc
// @Summary Pending invites for the calling faculty
// @Tags Collaborations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /faculty/pending-requests [get]
func (h *CollaborationHandler) List(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, err := h.collaborations.List(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"pendingRequests": requests})
}

// Respond godoc
// @Summary Accept or reject a collaboration invite
// @Tags Collaborations
// @Accept json
// @Produce json
// @Param payload body respondRequest true "Subject and action"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/respond-request [post]
func (h *CollaborationHandler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.collaborations.Respond(c.Request.Context(), claims.Email, req.SubjectID, models.RespondAction(req.Action)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "collaboration request "+req.Action+"ed")
}
