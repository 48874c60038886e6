package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"catalogadmin/clock"
)

// AttemptRecord is the persisted failed-login counter. LastAttempt is unix ms.
type AttemptRecord struct {
	Count       int   `json:"count"`
	LastAttempt int64 `json:"lastAttempt"`
}

// LockoutTracker locks an account after MaxAttempts failures until
// LockoutDuration has passed since the last failure. It is independent of the
// token bucket applied to the same login.
type LockoutTracker struct {
	mu              sync.Mutex
	store           Store
	clock           clock.Clock
	table           string
	MaxAttempts     int
	LockoutDuration time.Duration
}

func NewLockoutTracker(store Store, clk clock.Clock, maxAttempts int, lockout time.Duration) *LockoutTracker {
	return &LockoutTracker{
		store:           store,
		clock:           clock.OrReal(clk),
		table:           LoginAttempts,
		MaxAttempts:     maxAttempts,
		LockoutDuration: lockout,
	}
}

func (t *LockoutTracker) RegisterFailedAttempt(ctx context.Context, email string) (AttemptRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	table, err := t.store.Load(ctx, t.table)
	if err != nil {
		return AttemptRecord{}, err
	}
	rec, _ := readAttempt(table, email)
	rec.Count++
	rec.LastAttempt = t.clock.Now().UnixMilli()
	if err := putEntry(table, email, rec); err != nil {
		return AttemptRecord{}, err
	}
	return rec, t.store.Save(ctx, t.table, table)
}

// IsAccountLocked clears an expired record on the way through.
func (t *LockoutTracker) IsAccountLocked(ctx context.Context, email string) (bool, error) {
	locked, _, err := t.check(ctx, email)
	return locked, err
}

// RemainingLockTime is zero when the account is not locked.
func (t *LockoutTracker) RemainingLockTime(ctx context.Context, email string) (time.Duration, error) {
	_, remaining, err := t.check(ctx, email)
	return remaining, err
}

func (t *LockoutTracker) ClearLoginAttempts(ctx context.Context, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	table, err := t.store.Load(ctx, t.table)
	if err != nil {
		return err
	}
	delete(table, email)
	return t.store.Save(ctx, t.table, table)
}

func (t *LockoutTracker) check(ctx context.Context, email string) (bool, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	table, err := t.store.Load(ctx, t.table)
	if err != nil {
		return false, 0, err
	}
	rec, ok := readAttempt(table, email)
	if !ok {
		return false, 0, nil
	}

	elapsed := time.Duration(t.clock.Now().UnixMilli()-rec.LastAttempt) * time.Millisecond
	if elapsed > t.LockoutDuration {
		delete(table, email)
		return false, 0, t.store.Save(ctx, t.table, table)
	}
	if rec.Count < t.MaxAttempts {
		return false, 0, nil
	}
	remaining := t.LockoutDuration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}

func readAttempt(table Table, email string) (AttemptRecord, bool) {
	raw, ok := table[email]
	if !ok {
		return AttemptRecord{}, false
	}
	var rec AttemptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return AttemptRecord{}, false
	}
	return rec, true
}
