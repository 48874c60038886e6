package rbac

import (
	"context"
	"log/slog"
)

// Identity is the authenticated principal the resolver works from.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	SessionID   string
	Token       string
}

// ClaimsValidator re-validates a signed token and returns its role claim.
// An empty claim with a nil error means the token carries no role.
type ClaimsValidator interface {
	RoleClaim(ctx context.Context, token string) (string, error)
}

// Profiles is the user-profile collaborator. Lookups return "" when the
// profile or its role field is missing.
type Profiles interface {
	EnsureProfile(ctx context.Context, id Identity) error
	RoleByUserID(ctx context.Context, userID string) (string, error)
	RoleByEmail(ctx context.Context, email string) (string, error)
}

type Resolver struct {
	Claims   ClaimsValidator
	Profiles Profiles
	Logger   *slog.Logger
}

func NewResolver(claims ClaimsValidator, profiles Profiles, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Claims: claims, Profiles: profiles, Logger: logger}
}

// LoadRole resolves the role of id. The first source that yields a role wins:
// the token's role claim, the (lazily created) profile keyed by user id, then
// a profile found by email. Any collaborator error resolves to RoleNone.
func (r *Resolver) LoadRole(ctx context.Context, id Identity) Role {
	if id.UserID == "" {
		return RoleNone
	}

	if r.Claims != nil && id.Token != "" {
		claim, err := r.Claims.RoleClaim(ctx, id.Token)
		if err != nil {
			r.Logger.Warn("role claim validation failed", "user_id", id.UserID, "error", err)
			return RoleNone
		}
		if role := NormalizeRole(claim); role != RoleNone {
			return role
		}
	}

	if r.Profiles == nil {
		return RoleNone
	}

	if err := r.Profiles.EnsureProfile(ctx, id); err != nil {
		r.Logger.Warn("ensure profile failed", "user_id", id.UserID, "error", err)
		return RoleNone
	}

	raw, err := r.Profiles.RoleByUserID(ctx, id.UserID)
	if err != nil {
		r.Logger.Warn("profile lookup failed", "user_id", id.UserID, "error", err)
		return RoleNone
	}
	if role := NormalizeRole(raw); role != RoleNone {
		return role
	}

	if id.Email == "" {
		return RoleNone
	}
	raw, err = r.Profiles.RoleByEmail(ctx, id.Email)
	if err != nil {
		r.Logger.Warn("profile lookup by email failed", "user_id", id.UserID, "error", err)
		return RoleNone
	}
	return NormalizeRole(raw)
}
