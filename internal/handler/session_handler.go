package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

// SessionManager is the session lifecycle the handler drives.
type SessionManager interface {
	Start(ctx context.Context, subjectID, email string, location json.RawMessage) error
	UpdateLocation(ctx context.Context, subjectID, email string, location json.RawMessage) error
	Stop(ctx context.Context, subjectID, email string) error
	ActiveLocation(ctx context.Context, subjectID string) (models.RawLocation, error)
}

// SessionHandler exposes the live attendance session endpoints.
type SessionHandler struct {
	sessions SessionManager
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionRequest struct {
	SubjectID string          `json:"subjectID"`
	Location  json.RawMessage `json:"location"`
}

func (h *SessionHandler) bind(c *gin.Context) (*sessionRequest, string, bool) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return nil, "", false
	}
	if req.SubjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subjectID is required"))
		return nil, "", false
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, "", false
	}
	return &req, claims.Email, true
}

// Start godoc
// @Summary Start an attendance session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body sessionRequest true "Subject and location"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/start-attendance [post]
func (h *SessionHandler) Start(c *gin.Context) {
	req, email, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.sessions.Start(c.Request.Context(), req.SubjectID, email, req.Location); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "attendance session started"})
}

// UpdateLocation godoc
// @Summary Refresh the broadcast location
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body sessionRequest true "Subject and location"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/update-location [post]
func (h *SessionHandler) UpdateLocation(c *gin.Context) {
	req, email, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.sessions.UpdateLocation(c.Request.Context(), req.SubjectID, email, req.Location); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "location updated"})
}

// Stop godoc
// @Summary Stop broadcasting for a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body sessionRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/stop-attendance [post]
func (h *SessionHandler) Stop(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SubjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subjectID is required"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.sessions.Stop(c.Request.Context(), req.SubjectID, claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "attendance session stopped"})
}

// FacultyLocation godoc
// @Summary Fetch the live faculty location for a subject
// @Tags Sessions
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Success 200 {object} map[string]interface{}
// @Router /student/faculty-location/{subjectID} [get]
func (h *SessionHandler) FacultyLocation(c *gin.Context) {
	location, err := h.sessions.ActiveLocation(c.Request.Context(), c.Param("subjectID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"location": location})
}
