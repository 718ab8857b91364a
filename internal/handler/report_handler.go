package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

// ReportHandler exposes the attendance report endpoint.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type emailReportRequest struct {
	SubjectID string `json:"subjectID"`
}

// Email godoc
// @Summary Email the attendance report to the calling faculty
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body emailReportRequest true "Subject"
// @Success 202 {object} map[string]interface{}
// @Router /faculty/email-attendance [post]
func (h *ReportHandler) Email(c *gin.Context) {
	var req emailReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.reports.Request(c.Request.Context(), req.SubjectID, claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "report queued for delivery"})
}
