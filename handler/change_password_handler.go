package handler

import (
	"errors"

	"catalogadmin/dto"
	"catalogadmin/middleware"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ChangePassword(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format, password must be at least 8 characters and contain a number and a special character")
		return
	}

	err := h.Auth.ChangePassword(c.Request.Context(), id.UserID, req.OldPassword, req.NewPassword, requestInfo(c))
	switch {
	case err == nil:
		utils.Message(c, "Password updated successfully")
	case rateLimited(c, err):
	case errors.Is(err, usecase.ErrInvalidCredentials):
		utils.Unauthorized(c, "Current password is incorrect")
	case errors.Is(err, usecase.ErrSamePassword):
		utils.BadRequest(c, err.Error())
	default:
		h.logger().Error("password change failed", "user_id", id.UserID, "error", err)
		utils.InternalError(c, "Failed to update password")
	}
}
