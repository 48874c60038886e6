package ratelimit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"catalogadmin/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAllowBucketCapacity(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	l := NewLimiter(NewMemoryStore(), clk)

	for i := 0; i < 5; i++ {
		ok, err := l.AllowBucket(ctx, "login:a@b.c", 5, 1.0/120)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i+1)
	}

	ok, err := l.AllowBucket(ctx, "login:a@b.c", 5, 1.0/120)
	require.NoError(t, err)
	assert.False(t, ok)

	// A denied call does not consume.
	entry, found, err := l.Bucket(ctx, "login:a@b.c")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 0, entry.Tokens, 1e-9)
}

func TestAllowBucketRefillNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	l := NewLimiter(NewMemoryStore(), clk)

	ok, err := l.AllowBucket(ctx, "save", 3, 0.5)
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(time.Hour)
	ok, err = l.AllowBucket(ctx, "save", 3, 0.5)
	require.NoError(t, err)
	assert.True(t, ok)

	entry, _, err := l.Bucket(ctx, "save")
	require.NoError(t, err)
	assert.InDelta(t, 2, entry.Tokens, 1e-9)
	assert.Equal(t, clk.Now().UnixMilli(), entry.LastRefill)
}

func TestAllowBucketRefillAfterDrain(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	l := NewLimiter(NewMemoryStore(), clk)

	for i := 0; i < 5; i++ {
		_, err := l.AllowBucket(ctx, "k", 5, 1.0/120)
		require.NoError(t, err)
	}
	ok, _ := l.AllowBucket(ctx, "k", 5, 1.0/120)
	require.False(t, ok)

	wait, err := l.NextTokenIn(ctx, "k", 5, 1.0/120)
	require.NoError(t, err)
	assert.InDelta(t, float64(2*time.Minute), float64(wait), float64(time.Millisecond))

	clk.Advance(2*time.Minute + time.Second)
	ok, err = l.AllowBucket(ctx, "k", 5, 1.0/120)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowBucketPersistsEveryCall(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clk := clock.NewFake(t0)
	l := NewLimiter(store, clk)

	_, err := l.AllowBucket(ctx, "k", 1, 1)
	require.NoError(t, err)
	_, err = l.AllowBucket(ctx, "k", 1, 1)
	require.NoError(t, err)

	var table map[string]BucketEntry
	require.NoError(t, json.Unmarshal(store.Raw(RateLimitTable), &table))
	assert.Contains(t, table, "k")
	assert.InDelta(t, 0, table["k"].Tokens, 1e-9)

	// A second limiter over the same store sees the persisted state.
	other := NewLimiter(store, clk)
	ok, err := other.AllowBucket(ctx, "k", 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowBucketCorruptTableStartsOver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetRaw(RateLimitTable, []byte("{not json"))
	l := NewLimiter(store, clock.NewFake(t0))

	ok, err := l.AllowBucket(ctx, "k", 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowFixedWindow(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	l := NewLimiter(NewMemoryStore(), clk)

	tests := []struct {
		name    string
		advance time.Duration
		want    bool
	}{
		{"first", 0, true},
		{"second", time.Second, true},
		{"third is over max", time.Second, false},
		{"still inside window", 57 * time.Second, false},
		{"past resetAt", 2 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Advance(tt.advance)
			ok, err := l.Allow(ctx, "save:produto", 2, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestResetIn(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	l := NewLimiter(NewMemoryStore(), clk)

	wait, err := l.ResetIn(ctx, "2fa:u1")
	require.NoError(t, err)
	assert.Zero(t, wait)

	_, err = l.Allow(ctx, "2fa:u1", 1, 15*time.Minute)
	require.NoError(t, err)
	clk.Advance(5 * time.Minute)

	wait, err = l.ResetIn(ctx, "2fa:u1")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, wait)

	clk.Advance(11 * time.Minute)
	wait, err = l.ResetIn(ctx, "2fa:u1")
	require.NoError(t, err)
	assert.Zero(t, wait)
}
