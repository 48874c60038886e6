package usecase

import (
	"context"
	"errors"
	"log/slog"

	"catalogadmin/clock"
	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/repository"
	"catalogadmin/services"
	"catalogadmin/utils"
)

// UsersService backs the user administration pages. Role and status changes
// end the target's sessions so that a stale role claim cannot outlive them.
type UsersService struct {
	Users  UserStore
	Auth   *AuthService
	Audit  Auditor
	Clock  clock.Clock
	Logger *slog.Logger
}

type CreateUserInput struct {
	Email       string
	DisplayName string
	Password    string
	Role        string
}

// Actor is the administrator performing a change.
type Actor struct {
	UserID string
	Role   rbac.Role
	RequestInfo
}

func (s *UsersService) audit(event model.AuditEvent) {
	if s.Audit != nil {
		s.Audit.Log(event)
	}
}

func (s *UsersService) List(ctx context.Context) ([]*model.User, error) {
	return s.Users.ListUsers(ctx)
}

// Create adds a user. An unknown role falls back to editor.
// Create adds a user. An unknown role falls back to editor.
func (s *UsersService) Create(ctx context.Context, in CreateUserInput, actor Actor) (*model.User, error) {
	if err := s.allowSave(ctx, actor); err != nil {
		return nil, err
	}
	role := rbac.NormalizeRole(in.Role)
	if !role.Canonical() {
		role = repository.DefaultProfileRole
	}

	var hashed string
	if in.Password != "" {
		h, err := services.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hashed = h
	}

	now := clock.OrReal(s.Clock).Now()
	user := &model.User{
		UserID:             utils.GenerateUserID(),
		Email:              utils.NormalizeEmail(in.Email),
		DisplayName:        in.DisplayName,
		Password:           hashed,
		Role:               string(role),
		Active:             true,
		LastPasswordChange: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Users.AddUser(ctx, user); err != nil {
		return nil, err
	}

	s.audit(model.AuditEvent{
		Action:    "user_create",
		Entity:    "user",
		EntityID:  user.UserID,
		UserID:    actor.UserID,
		Role:      string(actor.Role),
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		After:     map[string]any{"email": user.Email, "role": user.Role, "active": user.Active},
	})
	return user, nil
}

func (s *UsersService) find(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// SetRole changes a user's role. Only admin, editor and analista are accepted.
func (s *UsersService) SetRole(ctx context.Context, userID, role string, actor Actor) error {
	next := rbac.NormalizeRole(role)
	if !next.Canonical() {
		return ErrInvalidRole
	}
	if err := s.allowSave(ctx, actor); err != nil {
		return err
	}
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Users.UpdateRole(ctx, userID, string(next)); err != nil {
		return err
	}

	s.audit(model.AuditEvent{
		Action:    "user_role_change",
		Entity:    "user",
		EntityID:  userID,
		UserID:    actor.UserID,
		Role:      string(actor.Role),
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		Before:    map[string]any{"role": user.Role},
		After:     map[string]any{"role": string(next)},
	})
	if rbac.NormalizeRole(user.Role) != next {
		s.endSessions(ctx, userID, actor)
	}
	return nil
}

// SetActive enables or disables a user. Disabling ends every session.
func (s *UsersService) SetActive(ctx context.Context, userID string, active bool, actor Actor) error {
	if err := s.allowSave(ctx, actor); err != nil {
		return err
	}
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Users.UpdateActive(ctx, userID, active); err != nil {
		return err
	}

	s.audit(model.AuditEvent{
		Action:    "user_status_change",
		Entity:    "user",
		EntityID:  userID,
		UserID:    actor.UserID,
		Role:      string(actor.Role),
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		Before:    map[string]any{"active": user.Active},
		After:     map[string]any{"active": active},
	})
	if !active {
		s.endSessions(ctx, userID, actor)
	}
	return nil
}

// ResetPassword sets a new password chosen by an administrator. The target's
// sessions end and any lockout on the account is cleared.
func (s *UsersService) ResetPassword(ctx context.Context, userID, password string, actor Actor) error {
	if err := s.allowSave(ctx, actor); err != nil {
		return err
	}
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	hashed, err := services.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Users.UpdateUserPassword(ctx, userID, hashed); err != nil {
		return err
	}

	s.audit(model.AuditEvent{
		Action:    "user_password_reset",
		Entity:    "user",
		EntityID:  userID,
		UserID:    actor.UserID,
		Role:      string(actor.Role),
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		Before:    map[string]any{"last_password_change": user.LastPasswordChange},
		After:     map[string]any{"last_password_change": clock.OrReal(s.Clock).Now()},
	})
	if s.Auth != nil && s.Auth.Lockout != nil {
		if err := s.Auth.Lockout.ClearLoginAttempts(ctx, user.Email); err != nil {
			s.logger().Warn("failed to clear lockout after password reset", "user_id", userID, "error", err)
		}
	}
	s.endSessions(ctx, userID, actor)
	return nil
}

func (s *UsersService) allowSave(ctx context.Context, actor Actor) error {
	if s.Auth == nil {
		return nil
	}
	return s.Auth.allowSave(ctx, "users:save:"+actor.UserID)
}

func (s *UsersService) endSessions(ctx context.Context, userID string, actor Actor) {
	if s.Auth == nil {
		return
	}
	n, err := s.Auth.LogoutAll(ctx, userID, actor.RequestInfo)
	if err != nil {
		s.logger().Warn("failed to end sessions after user change", "user_id", userID, "error", err)
		return
	}
	s.logger().Info("ended sessions after user change", "user_id", userID, "sessions", n)
}

func (s *UsersService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// IsNotFound reports whether err means the target user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound)
}
