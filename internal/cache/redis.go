package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache keeps a capped list of recent ledger events and publishes each
// event on the all-events channel and its kind channel.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(ctx context.Context, addr string, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for stores sharing it.
func (r *RedisCache) Client() *redis.Client { return r.client }

// KindChannel is the channel carrying only events of kind.
func KindChannel(kind models.EventKind) string {
	return constants.PubSubChannelEvents + ":" + string(kind)
}

func (r *RedisCache) RecordEvent(ctx context.Context, ev *models.LedgerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentEvents, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentEvents, 0, constants.MaxRecentEvents-1)
	pipe.Publish(ctx, constants.PubSubChannelEvents, data)
	pipe.Publish(ctx, KindChannel(ev.Kind), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache event %s: %w", ev.ID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"event_id": ev.ID,
		"kind":     ev.Kind,
	}).Debug("event cached")
	return nil
}

func (r *RedisCache) RecentEvents(ctx context.Context, limit int64) ([]*models.LedgerEvent, error) {
	if limit <= 0 {
		limit = constants.MaxRecentEvents
	}
	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentEvents, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	events := make([]*models.LedgerEvent, 0, len(raw))
	for _, item := range raw {
		ev, err := decodeEvent(item)
		if err != nil {
			r.logger.WithError(err).Warn("skipping malformed cached event")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func decodeEvent(payload string) (*models.LedgerEvent, error) {
	var ev models.LedgerEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
