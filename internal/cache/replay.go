package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard keeps seen request signatures in redis, so every API
// replica sharing the instance refuses the same replay.
type RedisReplayGuard struct {
	client *redis.Client
}

func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, constants.RedisKeySeenSignature+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim signature: %w", err)
	}
	return ok, nil
}

// MemoryReplayGuard keeps seen request signatures in process memory. Used
// when redis is not configured.
type MemoryReplayGuard struct {
	seen *gocache.Cache
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: gocache.New(constants.MaxSignatureSkew, time.Minute)}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	// Add fails when the key is present and unexpired.
	return g.seen.Add(key, struct{}{}, ttl) == nil, nil
}
