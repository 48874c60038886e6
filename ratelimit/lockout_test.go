package ratelimit

import (
	"context"
	"testing"
	"time"

	"catalogadmin/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(clk *clock.Fake) *LockoutTracker {
	return NewLockoutTracker(NewMemoryStore(), clk, 5, 15*time.Minute)
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	tr := newTracker(clk)

	for i := 0; i < 4; i++ {
		_, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
		require.NoError(t, err)
		clk.Advance(10 * time.Second)
	}
	locked, err := tr.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.False(t, locked)

	rec, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Count)

	locked, err = tr.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.True(t, locked)

	clk.Advance(5 * time.Minute)
	remaining, err := tr.RemainingLockTime(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, remaining)
}

func TestClearLoginAttemptsUnlocks(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(clock.NewFake(t0))

	for i := 0; i < 5; i++ {
		_, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
		require.NoError(t, err)
	}
	require.NoError(t, tr.ClearLoginAttempts(ctx, "ana@loja.com"))

	locked, err := tr.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLockoutExpiresLazily(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clk := clock.NewFake(t0)
	tr := NewLockoutTracker(store, clk, 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		_, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
		require.NoError(t, err)
	}

	clk.Advance(15*time.Minute + time.Millisecond)
	locked, err := tr.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.False(t, locked)

	table, err := store.Load(ctx, LoginAttempts)
	require.NoError(t, err)
	assert.NotContains(t, table, "ana@loja.com")

	// Counting starts over after the record was cleared.
	rec, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestLockoutBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	tr := newTracker(clk)

	for i := 0; i < 5; i++ {
		_, err := tr.RegisterFailedAttempt(ctx, "ana@loja.com")
		require.NoError(t, err)
	}
	clk.Advance(15 * time.Minute)
	locked, err := tr.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLockoutKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(clock.NewFake(t0))

	for i := 0; i < 5; i++ {
		_, err := tr.RegisterFailedAttempt(ctx, "a@loja.com")
		require.NoError(t, err)
	}
	locked, err := tr.IsAccountLocked(ctx, "b@loja.com")
	require.NoError(t, err)
	assert.False(t, locked)
}
