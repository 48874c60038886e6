package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catalogadmin/model"
	"catalogadmin/services"
	"catalogadmin/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepo struct {
	MongoCollection *mongo.Collection
	// Cache is optional; nil disables the Redis layer.
	Cache *services.SessionCache
}

func NewSessionRepo(db *mongo.Database, collection string, cache *services.SessionCache) *SessionRepo {
	return &SessionRepo{MongoCollection: db.Collection(collection), Cache: cache}
}

func (r *SessionRepo) CreateSession(ctx context.Context, session *model.Session) error {
	timer := utils.TrackDBOperation("insert", "sessions")
	defer timer.ObserveDuration()

	if session == nil || session.SessionID == "" || session.UserID == "" {
		utils.TrackError("database", "invalid_session_data")
		return errors.New("invalid session data: missing required fields")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.MongoCollection.InsertOne(ctx, session); err != nil {
		utils.TrackError("database", "session_creation_failed")
		return fmt.Errorf("failed to create session in database: %w", err)
	}

	r.cacheSet(ctx, session)
	r.invalidateUser(ctx, session.UserID)
	return nil
}

// GetSession returns nil, nil when the session does not exist.
func (r *SessionRepo) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	if sessionID == "" {
		return nil, errors.New("sessionID cannot be empty")
	}

	if r.Cache != nil {
		if session, err := r.Cache.GetSession(ctx, sessionID); err == nil && session != nil {
			return session, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var session model.Session
	err := r.MongoCollection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		utils.TrackError("database", "session_fetch_failed")
		return nil, fmt.Errorf("failed to fetch session from database: %w", err)
	}

	r.cacheSet(ctx, &session)
	return &session, nil
}

// TouchSession records activity on the session.
func (r *SessionRepo) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{"last_activity_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update session in database: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	if r.Cache != nil {
		_ = r.Cache.DeleteSession(ctx, sessionID)
	}
	return nil
}

// EndSession marks the session inactive. Ending an unknown session is not an
// error.
func (r *SessionRepo) EndSession(ctx context.Context, sessionID string) error {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var ended model.Session
	err := r.MongoCollection.FindOneAndUpdate(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"is_active": false, "last_activity_at": time.Now()}},
	).Decode(&ended)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		utils.TrackError("database", "session_end_failed")
		return fmt.Errorf("failed to end session: %w", err)
	}

	if r.Cache != nil {
		_ = r.Cache.DeleteSession(ctx, sessionID)
	}
	r.invalidateUser(ctx, ended.UserID)
	return nil
}

// EndAllUserSessions ends every active session of userID and returns their
// ids.
func (r *SessionRepo) EndAllUserSessions(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}

	sessions, err := r.fetchActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = r.MongoCollection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "last_activity_at": time.Now()}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to end user sessions: %w", err)
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
		if r.Cache != nil {
			_ = r.Cache.DeleteSession(ctx, s.SessionID)
		}
	}
	r.invalidateUser(ctx, userID)
	slog.Info("ended active sessions", "user_id", userID, "count", len(ids))
	return ids, nil
}

// GetUserActiveSessions lists unexpired active sessions, most recent first.
func (r *SessionRepo) GetUserActiveSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}
	if r.Cache != nil {
		if sessions, ok, err := r.Cache.GetUserSessions(ctx, userID); err == nil && ok {
			return sessions, nil
		}
	}

	sessions, err := r.fetchActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if r.Cache != nil {
		if err := r.Cache.CacheUserSessions(ctx, userID, sessions); err != nil {
			slog.Warn("failed to cache user sessions", "user_id", userID, "error", err)
		}
	}
	return sessions, nil
}

func (r *SessionRepo) fetchActive(ctx context.Context, userID string) ([]*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"last_activity_at": -1})
	cursor, err := r.MongoCollection.Find(ctx, bson.M{
		"user_id":    userID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	}, opts)
	if err != nil {
		utils.TrackError("database", "session_fetch_failed")
		return nil, fmt.Errorf("failed to fetch active sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*model.Session{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// EndLeastActiveSession ends the session with the oldest activity and
// returns its id.
func (r *SessionRepo) EndLeastActiveSession(ctx context.Context, userID string) (string, error) {
	sessions, err := r.fetchActive(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", ErrSessionNotFound
	}
	oldest := sessions[len(sessions)-1]
	if err := r.EndSession(ctx, oldest.SessionID); err != nil {
		return "", err
	}
	return oldest.SessionID, nil
}

func (r *SessionRepo) CountActiveSessions(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	count, err := r.MongoCollection.CountDocuments(ctx, bson.M{
		"user_id":    userID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return int(count), nil
}

func (r *SessionRepo) cacheSet(ctx context.Context, session *model.Session) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.SetSession(ctx, session); err != nil {
		utils.TrackError("cache", "session_cache_set_failed")
		slog.Warn("failed to cache session", "session_id", session.SessionID, "error", err)
	}
}

func (r *SessionRepo) invalidateUser(ctx context.Context, userID string) {
	if r.Cache == nil || userID == "" {
		return
	}
	if err := r.Cache.InvalidateUser(ctx, userID); err != nil {
		slog.Warn("failed to invalidate user sessions", "user_id", userID, "error", err)
	}
}
