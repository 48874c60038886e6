package usecase

import (
	"context"
	"time"

	"catalogadmin/model"
	"catalogadmin/rbac"
)

type UserStore interface {
	FindUser(ctx context.Context, userID string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	AddUser(ctx context.Context, user *model.User) error
	EnsureProfile(ctx context.Context, id rbac.Identity) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateRole(ctx context.Context, userID, role string) error
	UpdateActive(ctx context.Context, userID string, active bool) error
	UpdateUserPassword(ctx context.Context, userID, hashedPassword string) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
	SetPendingTwoFactor(ctx context.Context, userID, secret string) error
	Enable2FAWithRecoveryCodes(ctx context.Context, userID string, recoveryCodes []string) error
	UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error
	Disable2FA(ctx context.Context, userID string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	EndSession(ctx context.Context, sessionID string) error
	EndAllUserSessions(ctx context.Context, userID string) ([]string, error)
	GetUserActiveSessions(ctx context.Context, userID string) ([]*model.Session, error)
	EndLeastActiveSession(ctx context.Context, userID string) (string, error)
	CountActiveSessions(ctx context.Context, userID string) (int, error)
}

// Auditor records audit events without blocking or failing the caller.
type Auditor interface {
	Log(event model.AuditEvent)
}
