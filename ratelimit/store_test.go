package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"catalogadmin/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	prefix := "test-" + uuid.NewString()
	store := NewRedisStore(client, prefix)
	defer client.Del(ctx, prefix+":"+RateLimitTable)

	table, err := store.Load(ctx, RateLimitTable)
	require.NoError(t, err)
	assert.Empty(t, table)

	l := NewLimiter(store, clock.NewFake(time.Now()))
	for i := 0; i < 2; i++ {
		ok, err := l.AllowBucket(ctx, "k", 2, 0.01)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.AllowBucket(ctx, "k", 2, 0.01)
	require.NoError(t, err)
	assert.False(t, ok)

	table, err = store.Load(ctx, RateLimitTable)
	require.NoError(t, err)
	assert.Contains(t, table, "k")
}

func TestMemoryStoreMissingTable(t *testing.T) {
	table, err := NewMemoryStore().Load(context.Background(), LoginAttempts)
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}
