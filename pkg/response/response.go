package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

// envelope mirrors the wire contract of the legacy API: success payloads are
// returned as-is with a success flag, errors carry the typed error object.
type envelope struct {
	Success bool             `json:"success"`
	Error   *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success response merging the payload with the success flag.
func JSON(c *gin.Context, status int, payload gin.H) {
	c.Header("Cache-Control", "no-store")
	if payload == nil {
		payload = gin.H{}
	}
	if _, ok := payload["success"]; !ok {
		payload["success"] = true
	}
	c.JSON(status, payload)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, payload gin.H) {
	JSON(c, http.StatusOK, payload)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, payload gin.H) {
	JSON(c, http.StatusCreated, payload)
}

// Message responds with HTTP 200 and a plain message body.
func Message(c *gin.Context, message string) {
	JSON(c, http.StatusOK, gin.H{"message": message})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, envelope{Success: false, Error: appErr})
}
