package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

// OTPHandler exposes one-time code endpoints.
type OTPHandler struct {
	otp *service.OTPService
}

// NewOTPHandler constructs OTPHandler.
func NewOTPHandler(otp *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

type otpRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Send godoc
// @Summary Send a one-time code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body otpRequest true "Target email"
// @Success 200 {object} map[string]interface{}
// @Router /send-otp [post]
func (h *OTPHandler) Send(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.otp.Send(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "otp sent")
}

// Verify godoc
// @Summary Verify a one-time code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body verifyOTPRequest true "Email and code"
// @Success 200 {object} map[string]interface{}
// @Router /verify-otp [post]
func (h *OTPHandler) Verify(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.otp.Verify(c.Request.Context(), req.Email, req.OTP); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "otp verified")
}

// ResetPassword godoc
// @Summary Reset password with a one-time code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body resetPasswordRequest true "Email, code and new password"
// @Success 200 {object} map[string]interface{}
// @Router /reset-password [post]
func (h *OTPHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.otp.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "password reset")
}
