package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catalogadmin/clock"
	"catalogadmin/config"
	"catalogadmin/model"
	"catalogadmin/ratelimit"
	"catalogadmin/rbac"
	"catalogadmin/services"
	"catalogadmin/session"
	"catalogadmin/utils"
)

// AuthService runs the login, logout and token refresh flows and answers
// the identity questions asked by the page guard and the API middleware.
type AuthService struct {
	Users     UserStore
	Sessions  SessionStore
	Tokens    *services.TokenService
	Blacklist services.TokenBlacklist
	Limiter   *ratelimit.Limiter
	Lockout   *ratelimit.LockoutTracker
	Monitors  *session.Registry
	Audit     Auditor
	Clock     clock.Clock
	Logger    *slog.Logger

	Session  config.SessionConfig
	Security config.SecurityConfig

	// Background outlives requests; idle monitors run on it.
	Background context.Context
}

type LoginInput struct {
	Email        string
	Password     string
	TOTPCode     string
	RecoveryCode string
	IP           string
	UserAgent    string
}

type LoginResult struct {
	User             *model.User
	Role             rbac.Role
	Session          *model.Session
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type RequestInfo struct {
	IP        string
	UserAgent string
}

func (s *AuthService) now() time.Time { return clock.OrReal(s.Clock).Now() }

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AuthService) audit(event model.AuditEvent) {
	if s.Audit != nil {
		s.Audit.Log(event)
	}
}

// Login checks the lockout tracker and the login token bucket before looking
// at credentials. Both gates must pass.
// dummyPasswordHash is compared against when the account is unknown so a
// miss costs the same argon2 work as a wrong password.
var dummyPasswordHash = sync.OnceValue(func() string {
	h, _ := services.HashPassword("unused#Password1")
	return h
})

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := utils.NormalizeEmail(in.Email)
	authEvent := func(action, userID string, meta map[string]any) {
		s.audit(model.AuditEvent{
			Action:    action,
			Entity:    "auth",
			EntityID:  userID,
			UserID:    userID,
			IP:        in.IP,
			UserAgent: in.UserAgent,
			Meta:      meta,
		})
	}

	locked, err := s.Lockout.IsAccountLocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		remaining, err := s.Lockout.RemainingLockTime(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check lockout: %w", err)
		}
		utils.TrackLockout()
		authEvent("login_lockout", "", map[string]any{"email": email})
		return nil, &LockoutError{Remaining: remaining}
	}

	bucket := "login:" + email
	allowed, err := s.Limiter.AllowBucket(ctx, bucket, s.Security.LoginBucketCapacity, s.Security.LoginBucketRefillPerSec)
	if err != nil {
		return nil, fmt.Errorf("check login rate: %w", err)
	}
	utils.TrackRateLimit("login_bucket", allowed)
	if !allowed {
		wait, _ := s.Limiter.NextTokenIn(ctx, bucket, s.Security.LoginBucketCapacity, s.Security.LoginBucketRefillPerSec)
		authEvent("login_rate_limited", "", map[string]any{"email": email})
		return nil, &RateLimitError{Wait: wait}
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	known := user != nil && user.Password != ""
	stored := dummyPasswordHash()
	if known {
		stored = user.Password
	}
	if !services.ComparePasswords(stored, in.Password) || !known {
		s.registerFailure(ctx, email)
		authEvent("login_failed", "", map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if in.TOTPCode == "" && in.RecoveryCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if err := s.checkSecondFactor(ctx, user, in.TOTPCode, in.RecoveryCode); err != nil {
			if errors.Is(err, ErrInvalidTwoFactor) {
				s.registerFailure(ctx, email)
				authEvent("login_failed", user.UserID, map[string]any{"email": email, "reason": "2fa"})
			}
			return nil, err
		}
	}

	if err := s.Lockout.ClearLoginAttempts(ctx, email); err != nil {
		s.logger().Warn("failed to clear login attempts", "email", email, "error", err)
	}

	identity := rbac.Identity{UserID: user.UserID, Email: user.Email, DisplayName: user.DisplayName}
	if err := s.Users.EnsureProfile(ctx, identity); err != nil {
		s.logger().Warn("could not ensure profile", "user_id", user.UserID, "error", err)
	}
	if !user.Active {
		authEvent("login_disabled", user.UserID, map[string]any{"email": email})
		return nil, ErrUserDisabled
	}

	if err := s.enforceSessionLimit(ctx, user.UserID); err != nil {
		return nil, err
	}

	role := rbac.NormalizeRole(user.Role)
	now := s.now()
	sess := &model.Session{
		SessionID:      utils.GenerateSessionID(),
		UserID:         user.UserID,
		Email:          user.Email,
		DisplayName:    utils.GenerateSessionName(in.UserAgent, in.IP),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.Session.Duration),
		LastActivityAt: now,
		DeviceInfo:     utils.DeviceInfo(in.UserAgent),
		IPAddress:      in.IP,
		IsActive:       true,
	}

	sub := services.TokenSubject{UserID: user.UserID, Email: user.Email, Role: string(role), SessionID: sess.SessionID}
	access, accessExp, err := s.Tokens.GenerateAccessToken(sub)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Tokens.GenerateRefreshToken(sub)
	if err != nil {
		return nil, err
	}

	if err := s.Sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.startMonitor(sess, role, access, refresh)

	utils.TrackAuthAttempt("success", "login")
	s.audit(model.AuditEvent{
		Action:    "login",
		Entity:    "auth",
		EntityID:  user.UserID,
		UserID:    user.UserID,
		Role:      string(role),
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Meta:      map[string]any{"session_id": sess.SessionID},
	})

	return &LoginResult{
		User:             user,
		Role:             role,
		Session:          sess,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) registerFailure(ctx context.Context, email string) {
	utils.TrackAuthAttempt("failure", "login")
	if _, err := s.Lockout.RegisterFailedAttempt(ctx, email); err != nil {
		s.logger().Warn("failed to register login attempt", "email", email, "error", err)
	}
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	max := s.Session.MaxActiveSessions
	if max <= 0 {
		return nil
	}
	count, err := s.Sessions.CountActiveSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	for ; count >= max; count-- {
		ended, err := s.Sessions.EndLeastActiveSession(ctx, userID)
		if err != nil {
			return fmt.Errorf("end least active session: %w", err)
		}
		s.stopMonitor(ended)
		s.logger().Info("session limit reached, ended least active session", "user_id", userID, "session_id", ended)
	}
	return nil
}

// startMonitor watches the new session for inactivity. On timeout the event
// is audited before the session is ended and its tokens revoked.
func (s *AuthService) startMonitor(sess *model.Session, role rbac.Role, access, refresh string) {
	if s.Monitors == nil {
		return
	}
	s.Monitors.Start(s.background(), sess.SessionID, s.monitorHooks(sess, role, access, refresh))
	s.updateActiveGauge()
}

// resumeMonitor attaches a monitor to a valid session this process is not
// watching yet, counting idle time from the stored last activity.
func (s *AuthService) resumeMonitor(sess *model.Session) {
	if s.Monitors == nil {
		return
	}
	if _, started := s.Monitors.Resume(s.background(), sess.SessionID, lastActivity(sess), s.monitorHooks(sess, "")); started {
		s.logger().Debug("resumed idle monitor", "session_id", sess.SessionID)
		s.updateActiveGauge()
	}
}

func (s *AuthService) background() context.Context {
	if s.Background == nil {
		return context.Background()
	}
	return s.Background
}

func (s *AuthService) monitorHooks(sess *model.Session, role rbac.Role, tokens ...string) session.Hooks {
	sessionID, userID := sess.SessionID, sess.UserID
	return session.Hooks{
		Warn: func(remaining time.Duration) {
			s.logger().Info("session about to expire", "session_id", sessionID, "remaining", remaining.Round(time.Second))
		},
		Logout: func(ctx context.Context) {
			s.auditTimeout(sessionID, userID, role)
			s.endSession(ctx, sessionID, tokens...)
			s.updateActiveGauge()
		},
		Validate: func(ctx context.Context) bool {
			current, err := s.Sessions.GetSession(ctx, sessionID)
			if err != nil {
				// A store outage is not proof of revocation.
				s.logger().Warn("session validation failed", "session_id", sessionID, "error", err)
				return true
			}
			return current != nil && current.IsActive && current.ExpiresAt.After(s.now())
		},
		Expired: func() {
			s.logger().Info("session no longer valid, monitor stopped", "session_id", sessionID)
			s.updateActiveGauge()
		},
	}
}

func (s *AuthService) auditTimeout(sessionID, userID string, role rbac.Role) {
	utils.TrackSessionTimeout()
	s.audit(model.AuditEvent{
		Action:   "session_timeout",
		Entity:   "auth",
		EntityID: userID,
		UserID:   userID,
		Role:     string(role),
		Meta:     map[string]any{"session_id": sessionID},
	})
}

// lastActivity falls back to the creation time for records that were never
// touched.
func lastActivity(sess *model.Session) time.Time {
	if sess.LastActivityAt.IsZero() {
		return sess.CreatedAt
	}
	return sess.LastActivityAt
}

func (s *AuthService) stopMonitor(sessionID string) {
	if s.Monitors != nil {
		s.Monitors.Stop(sessionID)
	}
}

func (s *AuthService) updateActiveGauge() {
	if s.Monitors != nil {
		utils.UpdateActiveSessions(s.Monitors.Len())
	}
}

func (s *AuthService) endSession(ctx context.Context, sessionID string, tokens ...string) {
	for _, tok := range tokens {
		s.revoke(ctx, tok)
	}
	if err := s.Sessions.EndSession(ctx, sessionID); err != nil {
		s.logger().Warn("failed to end session", "session_id", sessionID, "error", err)
	}
}

func (s *AuthService) revoke(ctx context.Context, token string) {
	if token == "" || s.Blacklist == nil {
		return
	}
	exp, err := s.Tokens.ExpiryOf(token)
	if err != nil {
		return
	}
	if err := s.Blacklist.Revoke(ctx, token, exp); err != nil {
		s.logger().Warn("failed to revoke token", "error", err)
	}
}

type LogoutInput struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	UserID       string
	Role         rbac.Role
	RequestInfo
}

// Logout ends the session and revokes its tokens. Login attempt records are
// kept.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) {
	if in.SessionID != "" {
		s.stopMonitor(in.SessionID)
		s.endSession(ctx, in.SessionID, in.AccessToken, in.RefreshToken)
	} else {
		s.revoke(ctx, in.AccessToken)
		s.revoke(ctx, in.RefreshToken)
	}
	s.updateActiveGauge()

	if in.UserID != "" {
		s.audit(model.AuditEvent{
			Action:    "logout",
			Entity:    "auth",
			EntityID:  in.UserID,
			UserID:    in.UserID,
			Role:      string(in.Role),
			IP:        in.IP,
			UserAgent: in.UserAgent,
			Meta:      map[string]any{"session_id": in.SessionID},
		})
	}
}

// LogoutAll ends every session of userID and returns how many were ended.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, info RequestInfo) (int, error) {
	ids, err := s.Sessions.EndAllUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.stopMonitor(id)
	}
	s.updateActiveGauge()
	s.audit(model.AuditEvent{
		Action:    "logout_all",
		Entity:    "auth",
		EntityID:  userID,
		UserID:    userID,
		IP:        info.IP,
		UserAgent: info.UserAgent,
		Meta:      map[string]any{"sessions": len(ids)},
	})
	return len(ids), nil
}

type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
}

// Refresh rotates the token pair. The role claim is re-read from the profile.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		utils.TrackAuthAttempt("failure", "refresh")
		return nil, ErrInvalidSession
	}
	if revoked, err := s.isRevoked(ctx, refreshToken); err != nil || revoked {
		utils.TrackAuthAttempt("failure", "refresh")
		return nil, ErrInvalidSession
	}

	sess, err := s.activeSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.FindUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidSession
	}

	sub := services.TokenSubject{
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      string(rbac.NormalizeRole(user.Role)),
		SessionID: sess.SessionID,
	}
	access, accessExp, err := s.Tokens.GenerateAccessToken(sub)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Tokens.GenerateRefreshToken(sub)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, refreshToken)

	utils.TrackAuthAttempt("success", "refresh")
	return &RefreshResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.SessionID,
	}, nil
}

func (s *AuthService) isRevoked(ctx context.Context, token string) (bool, error) {
	if s.Blacklist == nil {
		return false, nil
	}
	return s.Blacklist.IsRevoked(ctx, token)
}

func (s *AuthService) activeSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil || !sess.IsActive || !sess.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidSession
	}
	if s.idleExpired(sess) {
		s.stopMonitor(sess.SessionID)
		s.auditTimeout(sess.SessionID, sess.UserID, "")
		s.endSession(ctx, sess.SessionID)
		s.updateActiveGauge()
		return nil, ErrInvalidSession
	}
	s.resumeMonitor(sess)
	return sess, nil
}

// idleExpired checks the stored last activity against the idle timeout, so
// the limit holds without a monitor in this process.
func (s *AuthService) idleExpired(sess *model.Session) bool {
	last := lastActivity(sess)
	if s.Session.Timeout <= 0 || last.IsZero() {
		return false
	}
	return s.now().Sub(last) >= s.Session.Timeout
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string, info RequestInfo) error {
	if err := s.allowSave(ctx, "password:save:"+userID); err != nil {
		return err
	}
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil || !services.ComparePasswords(user.Password, current) {
		return ErrInvalidCredentials
	}
	if current == next {
		return ErrSamePassword
	}
	hashed, err := services.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Users.UpdateUserPassword(ctx, userID, hashed); err != nil {
		return err
	}
	s.audit(model.AuditEvent{
		Action:    "password_change",
		Entity:    "user",
		EntityID:  userID,
		UserID:    userID,
		IP:        info.IP,
		UserAgent: info.UserAgent,
	})
	return nil
}

// UpdateProfile changes the user's own display name and returns the stored
// profile.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName string, info RequestInfo) (*model.User, error) {
	if err := s.allowSave(ctx, "profile:save:"+userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}
	before := user.DisplayName
	if err := s.Users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return nil, err
	}
	user.DisplayName = displayName

	s.audit(model.AuditEvent{
		Action:    "profile_update",
		Entity:    "user",
		EntityID:  userID,
		UserID:    userID,
		IP:        info.IP,
		UserAgent: info.UserAgent,
		Before:    map[string]any{"display_name": before},
		After:     map[string]any{"display_name": displayName},
	})
	return user, nil
}
