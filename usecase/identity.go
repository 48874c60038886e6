package usecase

import (
	"context"
	"fmt"

	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/session"
)

// CurrentUser returns the identity behind an access token, or behind the
// session cookie alone when no token is presented. It returns nil, nil when
// there is no usable session.
func (s *AuthService) CurrentUser(ctx context.Context, sessionID, accessToken string) (*rbac.Identity, error) {
	if accessToken != "" {
		claims, err := s.Tokens.Parse(accessToken)
		if err != nil {
			return nil, nil
		}
		if sessionID != "" && claims.SessionID != "" && sessionID != claims.SessionID {
			return nil, nil
		}
		sess, err := s.activeSession(ctx, claims.SessionID)
		if err == ErrInvalidSession {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &rbac.Identity{
			UserID:      claims.UserID,
			Email:       claims.Email,
			DisplayName: sess.DisplayName,
			SessionID:   sess.SessionID,
			Token:       accessToken,
		}, nil
	}

	if sessionID == "" {
		return nil, nil
	}
	sess, err := s.activeSession(ctx, sessionID)
	if err == ErrInvalidSession {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rbac.Identity{
		UserID:      sess.UserID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		SessionID:   sess.SessionID,
	}, nil
}

// Revalidate forces a fresh check of the credential behind id: token
// signature, expiry and revocation, the session record and the profile's
// active flag.
func (s *AuthService) Revalidate(ctx context.Context, id *rbac.Identity) error {
	if id == nil {
		return ErrInvalidSession
	}
	if id.Token != "" {
		if _, err := s.Tokens.Parse(id.Token); err != nil {
			return ErrInvalidSession
		}
		revoked, err := s.isRevoked(ctx, id.Token)
		if err != nil {
			return fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return ErrInvalidSession
		}
	}
	if _, err := s.activeSession(ctx, id.SessionID); err != nil {
		return err
	}
	user, err := s.Users.FindUser(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.Active {
		return ErrInvalidSession
	}
	return nil
}

// RoleClaim validates token and returns its role claim.
func (s *AuthService) RoleClaim(ctx context.Context, token string) (string, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return "", err
	}
	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrInvalidSession
	}
	return claims.Role, nil
}

// Touch records user activity for the idle monitor and the session record.
// A session this process does not watch yet gets a monitor first.
func (s *AuthService) Touch(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if s.Monitors != nil && !s.Monitors.Touch(sessionID) {
		if _, err := s.activeSession(ctx, sessionID); err != nil {
			return
		}
		s.Monitors.Touch(sessionID)
	}
	if err := s.Sessions.TouchSession(ctx, sessionID, s.now()); err != nil {
		s.logger().Debug("session touch failed", "session_id", sessionID, "error", err)
	}
}

// SessionStatus reports the idle state of a session. ok is false when the
// session is no longer valid. Without a local monitor the state is taken
// from the stored last activity.
func (s *AuthService) SessionStatus(ctx context.Context, sessionID string) (session.Status, bool) {
	if s.Monitors != nil {
		if st, ok := s.Monitors.Status(sessionID); ok && !st.Stopped {
			return st, true
		}
	}
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return session.Status{}, false
	}
	if s.Monitors != nil {
		if st, ok := s.Monitors.Status(sessionID); ok {
			return st, true
		}
	}
	last := lastActivity(sess)
	remaining := s.Session.Timeout - s.now().Sub(last)
	if remaining < 0 {
		remaining = 0
	}
	return session.Status{
		LastActivity: last,
		Remaining:    remaining,
		Warning:      remaining <= s.Session.WarningTime,
	}, true
}

// ActiveSessions lists the user's sessions that are still open.
func (s *AuthService) ActiveSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.Sessions.GetUserActiveSessions(ctx, userID)
}
