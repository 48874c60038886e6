package handler

import (
	"errors"
	"net/http"
	"strings"

	"catalogadmin/dto"
	"catalogadmin/middleware"
	"catalogadmin/rbac"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetUserProfile(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		utils.Unauthorized(c, "Unauthorized")
		return
	}
	access := middleware.AccessFrom(c)

	baseURL := utils.RequestOrigin(c) + h.BasePath + "/api"
	links := map[string]dto.UserLink{
		"self":            {Href: baseURL + "/me", Method: http.MethodGet},
		"update-profile":  {Href: baseURL + "/me", Method: http.MethodPut},
		"update-password": {Href: baseURL + "/me/password", Method: http.MethodPut},
		"sessions":        {Href: baseURL + "/sessions", Method: http.MethodGet},
		"logout":          {Href: baseURL + "/auth/logout", Method: http.MethodPost},
	}
	if access.Has(rbac.PermAdminUsers) {
		links["users"] = dto.UserLink{Href: baseURL + "/users", Method: http.MethodGet}
	}

	utils.Success(c, dto.ToUserProfileResponse(id, access, links))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		utils.BadRequest(c, "Display name is required")
		return
	}

	user, err := h.Auth.UpdateProfile(c.Request.Context(), id.UserID, name, requestInfo(c))
	switch {
	case err == nil:
		utils.Success(c, dto.ToUserResponse(user))
	case rateLimited(c, err):
	case errors.Is(err, usecase.ErrInvalidSession):
		utils.Unauthorized(c, "Unauthorized")
	default:
		h.logger().Error("profile update failed", "user_id", id.UserID, "error", err)
		utils.InternalError(c, "Failed to update profile")
	}
}
