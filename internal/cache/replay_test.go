package cache

import (
	"context"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.ReplayGuard = (*RedisReplayGuard)(nil)
	_ storage.ReplayGuard = (*MemoryReplayGuard)(nil)
)

func TestMemoryReplayGuard(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryReplayGuard()

	ok, err := g.Claim(ctx, "sig-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "sig-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.Claim(ctx, "sig-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryReplayGuard_Expires(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryReplayGuard()

	ok, _ := g.Claim(ctx, "sig", 10*time.Millisecond)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)

	ok, err := g.Claim(ctx, "sig", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisReplayGuard(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	g := NewRedisReplayGuard(client)

	ok, err := g.Claim(ctx, "sig-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "sig-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := client.TTL(ctx, constants.RedisKeySeenSignature+"sig-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
