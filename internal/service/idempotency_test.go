package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisIdempotency(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "k1"))
	ok, err = store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}
