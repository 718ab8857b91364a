package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type stubSessionManager struct {
	started     []string
	location    models.RawLocation
	startErr    error
	locationErr error
}

func (s *stubSessionManager) Start(_ context.Context, subjectID, email string, _ json.RawMessage) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, subjectID+"/"+email)
	return nil
}

func (s *stubSessionManager) UpdateLocation(_ context.Context, _, _ string, _ json.RawMessage) error {
	return s.startErr
}

func (s *stubSessionManager) Stop(_ context.Context, _, _ string) error {
	return nil
}

func (s *stubSessionManager) ActiveLocation(_ context.Context, _ string) (models.RawLocation, error) {
	if s.locationErr != nil {
		return nil, s.locationErr
	}
	return s.location, nil
}

func withClaims(email string, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{Email: email, Role: role})
	}
}

func newSessionRouter(sessions *stubSessionManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewSessionHandler(sessions)
	faculty := router.Group("/faculty", withClaims("prof@example.edu", models.RoleFaculty))
	faculty.POST("/start-attendance", h.Start)
	faculty.POST("/stop-attendance", h.Stop)
	router.GET("/student/faculty-location/:subjectID", h.FacultyLocation)
	return router
}

func TestSessionHandlerStart(t *testing.T) {
	sessions := &stubSessionManager{}
	router := newSessionRouter(sessions)

	body := `{"subjectID":"sub-1","location":{"latitude":26.61,"longitude":92.79}}`
	req := httptest.NewRequest(http.MethodPost, "/faculty/start-attendance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "attendance session started", resp["message"])
	assert.Equal(t, []string{"sub-1/prof@example.edu"}, sessions.started)
}

func TestSessionHandlerStartMissingSubject(t *testing.T) {
	sessions := &stubSessionManager{}
	router := newSessionRouter(sessions)

	req := httptest.NewRequest(http.MethodPost, "/faculty/start-attendance", strings.NewReader(`{"location":{}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sessions.started)
}

func TestSessionHandlerFacultyLocation(t *testing.T) {
	sessions := &stubSessionManager{location: models.RawLocation(`{"latitude":26.61}`)}
	router := newSessionRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/student/faculty-location/sub-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"location":{"latitude":26.61}}`, rec.Body.String())
}

func TestSessionHandlerFacultyLocationExpired(t *testing.T) {
	sessions := &stubSessionManager{locationErr: appErrors.Clone(appErrors.ErrNotFound, "no active attendance session")}
	router := newSessionRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/student/faculty-location/sub-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, appErrors.ErrNotFound.Code, resp.Error.Code)
	assert.Equal(t, "no active attendance session", resp.Error.Message)
	assert.Equal(t, http.StatusNotFound, resp.Error.Status)
}
