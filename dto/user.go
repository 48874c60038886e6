package dto

import (
	"time"

	"catalogadmin/model"
	"catalogadmin/rbac"
)

type UserLink struct {
	Href   string `json:"href"`
	Method string `json:"method,omitempty"` // Optional: GET, POST, PUT, DELETE, PATCH
}

type LoginRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	TwoFactor    string `json:"two_factor_code,omitempty"`
	RecoveryCode string `json:"recovery_code,omitempty"`
	Redirect     string `json:"redirect,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,password"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,password"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=120"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type DisableTwoFactorRequest struct {
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"max=120"`
	Password    string `json:"password" binding:"omitempty,password"`
	Role        string `json:"role" binding:"omitempty"`
}

type SetRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type UserResponse struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name,omitempty"`
	Role             string    `json:"role"`
	Active           bool      `json:"active"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		UserID:           user.UserID,
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		Role:             string(rbac.NormalizeRole(user.Role)),
		Active:           user.Active,
		TwoFactorEnabled: user.TwoFactorEnabled,
		CreatedAt:        user.CreatedAt,
	}
}

func ToUserResponses(users []*model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserResponse(u))
	}
	return out
}

type UserProfileResponse struct {
	UserID      string              `json:"user_id"`
	Email       string              `json:"email"`
	DisplayName string              `json:"display_name,omitempty"`
	Role        string              `json:"role"`
	Permissions []string            `json:"permissions"`
	SessionID   string              `json:"session_id,omitempty"`
	Links       map[string]UserLink `json:"_links,omitempty"` // HAL UserLinks
}

func ToUserProfileResponse(id *rbac.Identity, access rbac.Access, links map[string]UserLink) UserProfileResponse {
	perms := access.Permissions()
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return UserProfileResponse{
		UserID:      id.UserID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        string(access.Role),
		Permissions: names,
		SessionID:   id.SessionID,
		Links:       links,
	}
}
