package handler

import (
	"errors"
	"net/http"
	"strconv"

	"catalogadmin/dto"
	"catalogadmin/guard"
	"catalogadmin/middleware"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.TrackError("auth", "invalid_request")
		utils.TrackAuthAttempt("failure", "validation")
		utils.BadRequest(c, "Invalid Request")
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		TOTPCode:     req.TwoFactor,
		RecoveryCode: req.RecoveryCode,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		h.loginError(c, err)
		return
	}

	h.setSessionCookies(c, res.Session.SessionID, res.AccessToken, res.AccessExpiresAt, res.RefreshToken, res.RefreshExpiresAt)

	redirect := req.Redirect
	if redirect == "" {
		redirect = c.Query("redirect")
	}

	utils.Success(c, gin.H{
		"message":       "Login successful",
		"token":         res.AccessToken,
		"refresh":       res.RefreshToken,
		"expires_at":    res.AccessExpiresAt,
		"session_id":    res.Session.SessionID,
		"redirect":      guard.SafeRedirect(h.BasePath, h.Origin, redirect),
		"session_limit": h.Auth.Session.MaxActiveSessions,
		"user":          dto.ToUserResponse(res.User),
	})
}

func (h *Handler) loginError(c *gin.Context, err error) {
	var lockErr *usecase.LockoutError

	switch {
	case errors.As(err, &lockErr):
		mins := usecase.Minutes(lockErr.Remaining)
		c.Header("Retry-After", strconv.Itoa(int(lockErr.Remaining.Seconds())+1))
		c.JSON(http.StatusLocked, &utils.Response{
			Status: http.StatusLocked,
			Error:  lockErr.Error(),
			Data:   gin.H{"retry_after_minutes": mins},
		})
	case rateLimited(c, err):
	case errors.Is(err, usecase.ErrTwoFactorRequired):
		utils.TrackAuthAttempt("pending", "2fa_required")
		utils.Success(c, gin.H{
			"requires_2fa": true,
			"message":      "2FA code required",
		})
	case errors.Is(err, usecase.ErrInvalidTwoFactor):
		utils.Unauthorized(c, "Invalid 2FA code")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		utils.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, usecase.ErrUserDisabled):
		utils.Forbidden(c, err.Error())
	default:
		h.logger().Error("login failed", "error", err)
		utils.TrackError("auth", "login_internal")
		utils.InternalError(c, "Login failed")
	}
}

func (h *Handler) Logout(c *gin.Context) {
	sessionID, token := middleware.Credentials(c)
	refresh, _ := c.Cookie(middleware.RefreshCookie)

	in := usecase.LogoutInput{
		SessionID:    sessionID,
		AccessToken:  token,
		RefreshToken: refresh,
		RequestInfo:  requestInfo(c),
	}
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		id, _ = h.Auth.CurrentUser(c.Request.Context(), sessionID, token)
	}
	if id != nil {
		in.UserID = id.UserID
		in.SessionID = id.SessionID
		if h.Roles != nil {
			in.Role = h.Roles.LoadRole(c.Request.Context(), *id)
		}
	}

	h.Auth.Logout(c.Request.Context(), in)
	h.clearSessionCookies(c)
	utils.Message(c, "Successfully logged out", gin.H{
		"redirect": guard.LoginURL(h.BasePath, ""),
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(middleware.RefreshCookie)
	}
	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	res, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidSession) {
			h.clearSessionCookies(c)
			utils.Unauthorized(c, "Invalid or expired refresh token")
			return
		}
		h.logger().Error("token refresh failed", "error", err)
		utils.InternalError(c, "Failed to refresh token")
		return
	}

	h.setSessionCookies(c, res.SessionID, res.AccessToken, res.AccessExpiresAt, res.RefreshToken, res.RefreshExpiresAt)
	utils.Success(c, gin.H{
		"token":      res.AccessToken,
		"refresh":    res.RefreshToken,
		"expires_at": res.AccessExpiresAt,
	})
}
