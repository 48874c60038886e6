package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalogadmin/clock"
	"catalogadmin/utils"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes tokens until they would have expired anyway.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RedisTokenBlacklist struct {
	client *redis.Client
	prefix string
}

func NewRedisTokenBlacklist(client *redis.Client, prefix string) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client, prefix: prefix}
}

// Tokens are stored by hash, never in clear text.
func (tb *RedisTokenBlacklist) key(token string) string {
	return fmt.Sprintf("%s:blacklist:%s", tb.prefix, utils.HashString(token))
}

func (tb *RedisTokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := tb.client.Set(ctx, tb.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in Redis: %w", err)
	}
	return nil
}

func (tb *RedisTokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := tb.client.Exists(ctx, tb.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("error checking token blacklist: %w", err)
	}
	return n > 0, nil
}

// MemoryTokenBlacklist is used when no Redis is configured.
type MemoryTokenBlacklist struct {
	mu     sync.Mutex
	clock  clock.Clock
	tokens map[string]time.Time
}

func NewMemoryTokenBlacklist(clk clock.Clock) *MemoryTokenBlacklist {
	return &MemoryTokenBlacklist{clock: clock.OrReal(clk), tokens: make(map[string]time.Time)}
}

func (tb *MemoryTokenBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := tb.clock.Now()
	if !expiresAt.After(now) {
		return nil
	}
	for k, exp := range tb.tokens {
		if !exp.After(now) {
			delete(tb.tokens, k)
		}
	}
	tb.tokens[utils.HashString(token)] = expiresAt
	return nil
}

func (tb *MemoryTokenBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	exp, ok := tb.tokens[utils.HashString(token)]
	return ok && exp.After(tb.clock.Now()), nil
}
