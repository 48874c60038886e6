package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Table keys under which the persisted state lives.
const (
	RateLimitTable = "rate_limits_v1"
	LoginAttempts  = "login_attempts"
)

// Table is the persisted shape of a limiter table: identifier -> JSON entry.
type Table map[string]json.RawMessage

// Store persists whole tables. Implementations do not need to be atomic across
// processes; concurrent writers race last-write-wins.
type Store interface {
	Load(ctx context.Context, key string) (Table, error)
	Save(ctx context.Context, key string, table Table) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Table, error) {
	s.mu.RLock()
	raw, ok := s.tables[key]
	s.mu.RUnlock()
	if !ok {
		return Table{}, nil
	}
	return decodeTable(raw)
}

func (s *MemoryStore) Save(_ context.Context, key string, table Table) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.tables[key] = raw
	s.mu.Unlock()
	return nil
}

// Raw returns the encoded table, mostly for tests.
func (s *MemoryStore) Raw(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.tables[key]...)
}

// SetRaw replaces the encoded table without validation.
func (s *MemoryStore) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	s.tables[key] = append([]byte(nil), raw...)
	s.mu.Unlock()
}

// RedisStore keeps one Redis string per table holding the JSON object.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) Load(ctx context.Context, key string) (Table, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeTable(raw)
}

func (s *RedisStore) Save(ctx context.Context, key string, table Table) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// decodeTable never fails: corrupt content is read as an empty table.
func decodeTable(raw []byte) (Table, error) {
	t := Table{}
	if len(raw) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(raw, &t); err != nil || t == nil {
		return Table{}, nil
	}
	return t, nil
}
