package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/redis/go-redis/v9"
)

const (
	indexKey    = "treasury:switches"
	valuePrefix = "treasury:switch:"
)

// Withdrawal has no switch: the owner can always drain the destination
// balance.
var switchKeys = []string{
	PauseKey(treasury.OpDeposit),
	PauseKey(treasury.OpSwap),
}

// PauseKey is the switch key that pauses op.
func PauseKey(op treasury.Operation) string {
	return "pause." + string(op)
}

// Store keeps operational switches in redis and implements
// treasury.Switches.
type Store struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client, now: time.Now}, nil
}

func ValidateKey(key string) error {
	if !slices.Contains(switchKeys, key) {
		return fmt.Errorf("%w: %q", ErrUnknownSwitch, key)
	}
	return nil
}

// Keys lists the switches the store accepts.
func Keys() []string {
	return slices.Clone(switchKeys)
}

func (s *Store) Set(ctx context.Context, key string, value bool, by string) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	sw := &Switch{Key: key, Value: value, UpdatedAt: s.now().UTC(), UpdatedBy: by}
	b, err := json.Marshal(sw)
	if err != nil {
		return nil, fmt.Errorf("marshal switch: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, switchKey(key), b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("set switch: %w", err)
	}
	return sw, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, switchKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get switch: %w", err)
	}

	var sw Switch
	if err := json.Unmarshal([]byte(val), &sw); err != nil {
		return nil, fmt.Errorf("unmarshal switch: %w", err)
	}
	return &sw, nil
}

// Paused reports whether op is paused. An unset switch is not paused.
func (s *Store) Paused(ctx context.Context, op treasury.Operation) (bool, error) {
	sw, err := s.Get(ctx, PauseKey(op))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sw.Value, nil
}

// List returns every known switch, reporting unset ones as false.
func (s *Store) List(ctx context.Context) ([]*Switch, error) {
	keys := Keys()
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = switchKey(k)
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget switches: %w", err)
	}

	out := make([]*Switch, 0, len(keys))
	for i, v := range vals {
		sw := &Switch{Key: keys[i]}
		if raw, ok := v.(string); ok {
			if err := json.Unmarshal([]byte(raw), sw); err != nil {
				return nil, fmt.Errorf("unmarshal switch %s: %w", keys[i], err)
			}
		}
		out = append(out, sw)
	}
	return out, nil
}

// Delete resets a switch to unset.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, switchKey(key))
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete switch: %w", err)
	}
	return nil
}

func switchKey(key string) string {
	return valuePrefix + key
}
