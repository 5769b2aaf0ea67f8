package cache

import (
	"context"

	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PubSubManager consumes ledger events published by RedisCache.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(addr string, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: logger,
	}
}

// Subscribe delivers events from channel until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler storage.EventHandler) error {
	sub := p.client.Subscribe(ctx, channel)
	defer sub.Close()

	p.logger.WithField("channel", channel).Info("subscribed")
	return p.consume(ctx, sub, handler)
}

// PSubscribe delivers events from every channel matching pattern, e.g.
// "treasury:events:*".
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler storage.EventHandler) error {
	sub := p.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	p.logger.WithField("pattern", pattern).Info("subscribed")
	return p.consume(ctx, sub, handler)
}

func (p *PubSubManager) consume(ctx context.Context, sub *redis.PubSub, handler storage.EventHandler) error {
	// Surface a failed subscription before waiting on messages.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling event")
				continue
			}
			handler(ev)
		}
	}
}

func (p *PubSubManager) Close() error {
	return p.client.Close()
}
