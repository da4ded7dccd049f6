package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimitStore(t *testing.T, at time.Time) (*RateLimitStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRateLimitStore(client)
	store.now = func() time.Time { return at }
	return store, mr
}

func TestRateLimitStore_Allow(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	store, _ := newTestRateLimitStore(t, at)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		result, err := store.Allow(ctx, "partner1:webhook_config", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
		assert.Equal(t, int64(3), result.Limit)
		assert.Equal(t, 3-i, result.Remaining)
	}

	result, err := store.Allow(ctx, "partner1:webhook_config", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, (at.Unix()/60+1)*60, result.ResetAt)
}

func TestRateLimitStore_SeparateKeys(t *testing.T) {
	store, _ := newTestRateLimitStore(t, time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	_, err := store.Allow(ctx, "partnerA:surveys", 1, time.Minute)
	require.NoError(t, err)

	result, err := store.Allow(ctx, "partnerB:surveys", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitStore_NewWindowResets(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	store, _ := newTestRateLimitStore(t, at)
	ctx := context.Background()

	_, err := store.Allow(ctx, "p:surveys", 1, time.Minute)
	require.NoError(t, err)
	blocked, err := store.Allow(ctx, "p:surveys", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	store.now = func() time.Time { return at.Add(time.Minute) }
	result, err := store.Allow(ctx, "p:surveys", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitStore_SetsExpiry(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	store, mr := newTestRateLimitStore(t, at)

	_, err := store.Allow(context.Background(), "p:admin", 5, time.Minute)
	require.NoError(t, err)

	key := "ratelimit:p:admin:" + strconv.FormatInt(at.Unix()/60, 10)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 61*time.Second, mr.TTL(key))
}
