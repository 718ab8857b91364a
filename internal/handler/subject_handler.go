package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

// SubjectHandler exposes subject catalogue, archival and dashboard endpoints.
type SubjectHandler struct {
	subjects *service.SubjectService
}

// NewSubjectHandler constructs SubjectHandler.
func NewSubjectHandler(subjects *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

type subjectIDRequest struct {
	SubjectID string `json:"subjectID"`
}

type removeStudentRequest struct {
	SubjectID    string `json:"subjectID"`
	StudentEmail string `json:"studentEmail"`
}

// Create godoc
// @Summary Create a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} map[string]interface{}
// @Router /faculty/add-subject [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	subject, err := h.subjects.Create(c.Request.Context(), claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"message": "subject created", "subject": subject})
}

// FacultyDashboard godoc
// @Summary Faculty dashboard with roster and class counts
// @Tags Subjects
// @Produce json
// @Param email path string true "Faculty email"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/dashboard/{email} [get]
func (h *SubjectHandler) FacultyDashboard(c *gin.Context) {
	subjects, err := h.subjects.FacultyDashboard(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subjects": subjects})
}

// StudentDashboard godoc
// @Summary Student dashboard with attendance tallies
// @Tags Subjects
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} map[string]interface{}
// @Router /student/dashboard/{email} [get]
func (h *SubjectHandler) StudentDashboard(c *gin.Context) {
	subjects, err := h.subjects.StudentDashboard(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subjects": subjects})
}

// Catalog godoc
// @Summary Active subject identifiers nested by programme, department and semester
// @Tags Subjects
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /student/subjects [get]
func (h *SubjectHandler) Catalog(c *gin.Context) {
	catalog, err := h.subjects.Catalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subjects": catalog})
}

// Archived godoc
// @Summary Archived subjects of a faculty
// @Tags Subjects
// @Produce json
// @Param email path string true "Faculty email"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/get-archived-subjects/{email} [get]
func (h *SubjectHandler) Archived(c *gin.Context) {
	subjects, err := h.subjects.ArchivedSubjects(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subjects": subjects})
}

// Archive godoc
// @Summary Archive a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body subjectIDRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/archive-subject [post]
func (h *SubjectHandler) Archive(c *gin.Context) {
	h.archival(c, true)
}

// Unarchive godoc
// @Summary Restore an archived subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body subjectIDRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/unarchive-subject [post]
func (h *SubjectHandler) Unarchive(c *gin.Context) {
	h.archival(c, false)
}

func (h *SubjectHandler) archival(c *gin.Context, archive bool) {
	var req subjectIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var err error
	message := "subject unarchived"
	if archive {
		err = h.subjects.Archive(c.Request.Context(), req.SubjectID, claims.Email)
		message = "subject archived"
	} else {
		err = h.subjects.Unarchive(c.Request.Context(), req.SubjectID, claims.Email)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, message)
}

// Delete godoc
// @Summary Permanently delete an archived subject
// @Tags Subjects
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/delete-subject/{subjectID} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.subjects.Delete(c.Request.Context(), c.Param("subjectID"), claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "subject deleted")
}

// RemoveStudent godoc
// @Summary Remove a student from a subject roster
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body removeStudentRequest true "Subject and student"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/remove-student [post]
func (h *SubjectHandler) RemoveStudent(c *gin.Context) {
	var req removeStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.subjects.RemoveStudent(c.Request.Context(), req.SubjectID, claims.Email, req.StudentEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "student removed")
}

// Unenroll godoc
// @Summary Withdraw the calling student from a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body subjectIDRequest true "Subject"
// @Success 200 {object} map[string]interface{}
// @Router /student/unenroll [post]
func (h *SubjectHandler) Unenroll(c *gin.Context) {
	var req subjectIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.subjects.Unenroll(c.Request.Context(), req.SubjectID, claims.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "unenrolled from subject")
}

// Detail godoc
// @Summary Subject with roster and assigned faculty
// @Tags Subjects
// @Produce json
// @Param subjectID path string true "Subject identifier"
// @Success 200 {object} map[string]interface{}
// @Router /faculty/subject/{subjectID} [get]
func (h *SubjectHandler) Detail(c *gin.Context) {
	detail, err := h.subjects.Get(c.Request.Context(), c.Param("subjectID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subject": detail})
}
