package idempotency

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, "abc"))
	assert.ErrorIs(t, s.Reserve(ctx, "abc"), ErrDuplicate)
	assert.NoError(t, s.Reserve(ctx, "abd"))
}

func TestMemoryStore_Expires(t *testing.T) {
	s := NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, "abc"))
	time.Sleep(40 * time.Millisecond)
	assert.NoError(t, s.Reserve(ctx, "abc"))
}

func TestReserve_RejectsBadKeys(t *testing.T) {
	s := NewMemoryStore(0)
	assert.ErrorIs(t, s.Reserve(context.Background(), "  "), ErrInvalidKey)
	assert.ErrorIs(t, s.Reserve(context.Background(), strings.Repeat("k", 129)), ErrInvalidKey)
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	err := NewRedisStore(rdb, 0).Reserve(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "reserve idempotency key")
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "idempotent-key:abc", redisKey("abc"))
}
