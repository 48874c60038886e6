// Package ratelimit implements the persisted token-bucket and fixed-window
// limiters and the login lockout tracker.
//
// Entries are never evicted. A bucket or window is reinterpreted on every read
// (refilled or reset according to the elapsed time), so no background sweep is
// needed. Read-modify-write is serialized inside one process only; two
// processes sharing a store race last-write-wins.
package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"catalogadmin/clock"
)

// BucketEntry is the persisted token-bucket state. LastRefill is unix ms.
type BucketEntry struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"lastRefill"`
}

// WindowEntry is the persisted fixed-window state. ResetAt is unix ms.
type WindowEntry struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"`
}

type Limiter struct {
	mu    sync.Mutex
	store Store
	clock clock.Clock
	table string
}

// NewLimiter returns a limiter persisting into the rate_limits_v1 table.
func NewLimiter(store Store, clk clock.Clock) *Limiter {
	return &Limiter{store: store, clock: clock.OrReal(clk), table: RateLimitTable}
}

// AllowBucket takes one token from the bucket named key. A missing bucket
// starts full. When fewer than one token is available the call is denied and
// nothing is consumed. The table is persisted on every call.
func (l *Limiter) AllowBucket(ctx context.Context, key string, capacity int, refillPerSec float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.store.Load(ctx, l.table)
	if err != nil {
		return false, err
	}

	now := l.clock.Now().UnixMilli()
	entry := refill(readBucket(table, key, capacity, now), capacity, refillPerSec, now)

	allowed := entry.Tokens >= 1
	if allowed {
		entry.Tokens--
	}
	if err := putEntry(table, key, entry); err != nil {
		return false, err
	}
	if err := l.store.Save(ctx, l.table, table); err != nil {
		return false, err
	}
	return allowed, nil
}

// NextTokenIn estimates how long until the bucket holds a whole token again.
// It does not persist anything.
func (l *Limiter) NextTokenIn(ctx context.Context, key string, capacity int, refillPerSec float64) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.store.Load(ctx, l.table)
	if err != nil {
		return 0, err
	}
	now := l.clock.Now().UnixMilli()
	entry := refill(readBucket(table, key, capacity, now), capacity, refillPerSec, now)
	if entry.Tokens >= 1 || refillPerSec <= 0 {
		return 0, nil
	}
	secs := (1 - entry.Tokens) / refillPerSec
	return time.Duration(math.Ceil(secs * float64(time.Second))), nil
}

// Allow counts one hit against a fixed window of length window. The counter
// resets once the current time is past resetAt.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.store.Load(ctx, l.table)
	if err != nil {
		return false, err
	}

	now := l.clock.Now().UnixMilli()
	var entry WindowEntry
	if raw, ok := table[key]; ok {
		_ = json.Unmarshal(raw, &entry)
	}
	if entry.ResetAt == 0 || now > entry.ResetAt {
		entry = WindowEntry{Count: 0, ResetAt: now + window.Milliseconds()}
	}

	allowed := entry.Count < max
	if allowed {
		entry.Count++
	}
	if err := putEntry(table, key, entry); err != nil {
		return false, err
	}
	if err := l.store.Save(ctx, l.table, table); err != nil {
		return false, err
	}
	return allowed, nil
}

// ResetIn reports how long until the fixed window named key starts over.
func (l *Limiter) ResetIn(ctx context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.store.Load(ctx, l.table)
	if err != nil {
		return 0, err
	}
	var entry WindowEntry
	if raw, ok := table[key]; ok {
		_ = json.Unmarshal(raw, &entry)
	}
	left := entry.ResetAt - l.clock.Now().UnixMilli()
	if left <= 0 {
		return 0, nil
	}
	return time.Duration(left) * time.Millisecond, nil
}

// Bucket returns the stored bucket without refilling it.
func (l *Limiter) Bucket(ctx context.Context, key string) (BucketEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.store.Load(ctx, l.table)
	if err != nil {
		return BucketEntry{}, false, err
	}
	raw, ok := table[key]
	if !ok {
		return BucketEntry{}, false, nil
	}
	var entry BucketEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return BucketEntry{}, false, nil
	}
	return entry, true, nil
}

func readBucket(table Table, key string, capacity int, now int64) BucketEntry {
	full := BucketEntry{Tokens: float64(capacity), LastRefill: now}
	raw, ok := table[key]
	if !ok {
		return full
	}
	var entry BucketEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return full
	}
	return entry
}

func refill(entry BucketEntry, capacity int, refillPerSec float64, now int64) BucketEntry {
	elapsed := float64(now-entry.LastRefill) / 1000
	if elapsed < 0 {
		elapsed = 0
	}
	entry.Tokens = math.Min(float64(capacity), entry.Tokens+elapsed*refillPerSec)
	entry.LastRefill = now
	return entry
}

func putEntry(table Table, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	table[key] = raw
	return nil
}
