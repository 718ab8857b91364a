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

// AttendanceHandler exposes the durable attendance ledger endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, metrics: metrics}
}

type markAttendanceRequest struct {
	SubjectID string `json:"subjectID"`
}

type updateAttendanceRequest struct {
	SubjectID string               `json:"subjectID"`
	Date      string               `json:"date"`
	Students  []models.EntryUpdate `json:"Students"`
}

type deleteAttendanceRequest struct {
	SubjectID string `json:"subjectID"`
	Date      string `json:"date"`
}

// Mark godoc
// @Summary Mark the calling student present on the latest record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body markAttendanceRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /student/mark-attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req markAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.attendance.MarkPresent(c.Request.Context(), req.SubjectID, claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordAttendanceMarked()
	response.OK(c, gin.H{"message": "attendance marked"})
}

// History godoc
// @Summary Full dated attendance history of a subject
// @Tags Attendance
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/attendanceRecord/{subjectID} [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	records, err := h.attendance.History(c.Request.Context(), c.Param("subjectID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"records": records})
}

// ByDate godoc
// @Summary Attendance record of one class date
// @Tags Attendance
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Param date path string true "Class date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/get-attendance/{subjectID}/{date} [get]
func (h *AttendanceHandler) ByDate(c *gin.Context) {
	record, err := h.attendance.ByDate(c.Request.Context(), c.Param("subjectID"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"record": record})
}

// Update godoc
// @Summary Edit presence flags on a dated record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body updateAttendanceRequest true "Subject, date and edits"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/update-attendance [post]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.EditRecord(c.Request.Context(), req.SubjectID, req.Date, req.Students); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "attendance updated")
}

// Delete godoc
// @Summary Delete the record of one class date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body deleteAttendanceRequest true "Subject and date"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/delete-attendance [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	var req deleteAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.DeleteRecord(c.Request.Context(), req.SubjectID, req.Date); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "attendance record deleted")
}
