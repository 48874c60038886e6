package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalogadmin/model"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps session records in Redis in front of MongoDB.
type SessionCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, prefix string) *SessionCache {
	return &SessionCache{client: client, prefix: prefix, ttl: 5 * time.Minute}
}

func (sc *SessionCache) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", sc.prefix, sessionID)
}

func (sc *SessionCache) userKey(userID string) string {
	return fmt.Sprintf("%s:user_sessions:%s", sc.prefix, userID)
}

// SetSession caches session until it expires.
func (sc *SessionCache) SetSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("cannot cache nil session")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := sc.client.Set(ctx, sc.sessionKey(session.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// GetSession returns nil, nil on a cache miss.
func (sc *SessionCache) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID cannot be empty")
	}

	data, err := sc.client.Get(ctx, sc.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_ = sc.DeleteSession(ctx, sessionID)
		return nil, nil
	}
	return &session, nil
}

func (sc *SessionCache) DeleteSession(ctx context.Context, sessionID string) error {
	if err := sc.client.Del(ctx, sc.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from cache: %w", err)
	}
	return nil
}

// CacheUserSessions stores the active session list of a user for a short
// while.
func (sc *SessionCache) CacheUserSessions(ctx context.Context, userID string, sessions []*model.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := sc.client.Set(ctx, sc.userKey(userID), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user sessions: %w", err)
	}
	return nil
}

// GetUserSessions reports found=false on a cache miss.
func (sc *SessionCache) GetUserSessions(ctx context.Context, userID string) ([]*model.Session, bool, error) {
	data, err := sc.client.Get(ctx, sc.userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user sessions from cache: %w", err)
	}

	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}
	return sessions, true, nil
}

func (sc *SessionCache) InvalidateUser(ctx context.Context, userID string) error {
	if err := sc.client.Del(ctx, sc.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", err)
	}
	return nil
}
