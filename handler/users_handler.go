package handler

import (
	"errors"

	"catalogadmin/dto"
	"catalogadmin/repository"
	"catalogadmin/services"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.logger().Error("list users failed", "error", err)
		utils.InternalError(c, "Failed to fetch users")
		return
	}
	utils.Success(c, gin.H{"users": dto.ToUserResponses(users)})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.Users.Create(c.Request.Context(), usecase.CreateUserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	}, actor(c))
	switch {
	case err == nil:
		utils.Created(c, dto.ToUserResponse(user))
	case rateLimited(c, err):
	case errors.Is(err, repository.ErrDuplicateUser):
		utils.Conflict(c, "A user with this email already exists")
	case errors.Is(err, services.ErrWeakPassword):
		utils.BadRequest(c, err.Error())
	default:
		h.logger().Error("create user failed", "error", err)
		utils.InternalError(c, "Failed to create user")
	}
}

func (h *Handler) SetUserRole(c *gin.Context) {
	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid role")
		return
	}
	h.userChange(c, h.Users.SetRole(c.Request.Context(), c.Param("id"), req.Role, actor(c)), "Role updated")
}

func (h *Handler) SetUserActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}
	if id := actor(c).UserID; id == c.Param("id") && !*req.Active {
		utils.BadRequest(c, "You cannot disable your own account")
		return
	}
	h.userChange(c, h.Users.SetActive(c.Request.Context(), c.Param("id"), *req.Active, actor(c)), "Status updated")
}

func (h *Handler) SetUserPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format, password must be at least 8 characters and contain a number and a special character")
		return
	}
	h.userChange(c, h.Users.ResetPassword(c.Request.Context(), c.Param("id"), req.Password, actor(c)), "Password reset")
}

func (h *Handler) userChange(c *gin.Context, err error, msg string) {
	switch {
	case err == nil:
		utils.Message(c, msg)
	case rateLimited(c, err):
	case usecase.IsNotFound(err):
		utils.NotFound(c, "User not found")
	case errors.Is(err, services.ErrWeakPassword):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, usecase.ErrInvalidRole):
		utils.BadRequest(c, "Invalid role")
	default:
		h.logger().Error("user update failed", "user_id", c.Param("id"), "error", err)
		utils.InternalError(c, "Failed to update user")
	}
}
