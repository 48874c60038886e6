package handler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"

	"catalogadmin/dto"
	"catalogadmin/middleware"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp"
)

type Setup2FAResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code,omitempty"`
}

func (h *Handler) Setup2FA(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	setup, err := h.Auth.SetupTwoFactor(c.Request.Context(), id.UserID)
	if err != nil {
		h.logger().Error("2fa setup failed", "user_id", id.UserID, "error", err)
		utils.InternalError(c, "Failed to start 2FA setup")
		return
	}

	resp := Setup2FAResponse{Secret: setup.Secret, URL: setup.URL}
	if qr, err := qrCode(setup.URL); err == nil {
		resp.QRCode = qr
	}
	utils.Success(c, resp)
}

func qrCode(keyURL string) (string, error) {
	key, err := otp.NewKeyFromURL(keyURL)
	if err != nil {
		return "", err
	}
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (h *Handler) Enable2FA(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	var req dto.TwoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	codes, err := h.Auth.EnableTwoFactor(c.Request.Context(), id.UserID, req.Code, requestInfo(c))
	switch {
	case err == nil:
		utils.Message(c, "2FA enabled successfully", gin.H{"recovery_codes": codes})
	case rateLimited(c, err):
	case errors.Is(err, usecase.ErrTwoFactorNotPending):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, usecase.ErrInvalidTwoFactor):
		utils.BadRequest(c, "Invalid 2FA code")
	default:
		h.logger().Error("2fa enable failed", "user_id", id.UserID, "error", err)
		utils.InternalError(c, "Failed to enable 2FA")
	}
}

func (h *Handler) Disable2FA(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	var req dto.DisableTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	err := h.Auth.DisableTwoFactor(c.Request.Context(), id.UserID, req.Password, requestInfo(c))
	switch {
	case err == nil:
		utils.Message(c, "2FA disabled successfully")
	case rateLimited(c, err):
	case errors.Is(err, usecase.ErrInvalidCredentials):
		utils.Unauthorized(c, "Invalid password")
	default:
		h.logger().Error("2fa disable failed", "user_id", id.UserID, "error", err)
		utils.InternalError(c, "Failed to disable 2FA")
	}
}
