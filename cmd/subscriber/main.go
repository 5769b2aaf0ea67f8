// Command subscriber prints ledger events as the treasury API publishes them.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aman-zulfiqar/solana-treasury/internal/cache"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	kind := flag.String("kind", "", "only print events of this kind (deposit, swap, withdrawal)")
	failures := flag.Bool("failures", false, "also report failed operations at warn level")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pubsub := cache.NewPubSubManager(cfg.RedisAddr, logger)
	defer pubsub.Close()

	show := func(ev *models.LedgerEvent) {
		entry := logger.WithFields(logrus.Fields{
			"id":     ev.ID,
			"caller": ev.Caller,
			"pair":   ev.Pair(),
			"in":     ev.AmountInUI.String(),
			"out":    ev.AmountOutUI.String(),
			"router": ev.Router,
		})
		if ev.Status == models.StatusFailed {
			if *failures {
				entry.WithField("error", ev.Error).Warnf("%s failed", ev.Kind)
			}
			return
		}
		entry.Infof("%s", ev.Kind)
	}

	var wg sync.WaitGroup
	run := func(name string, f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				logger.WithError(err).WithField("sub", name).Error("subscription ended")
				cancel()
			}
		}()
	}

	if *kind != "" {
		ch := cache.KindChannel(models.EventKind(*kind))
		run(ch, func() error { return pubsub.Subscribe(ctx, ch, show) })
	} else {
		run(constants.PubSubChannelEvents, func() error {
			return pubsub.Subscribe(ctx, constants.PubSubChannelEvents, show)
		})
		// Per-kind channels repeat every event; only count them.
		var mu sync.Mutex
		counts := map[models.EventKind]int{}
		run(constants.PubSubPatternByKind, func() error {
			return pubsub.PSubscribe(ctx, constants.PubSubPatternByKind, func(ev *models.LedgerEvent) {
				mu.Lock()
				counts[ev.Kind]++
				n := counts[ev.Kind]
				mu.Unlock()
				logger.WithFields(logrus.Fields{"kind": ev.Kind, "seen": n}).Debug("kind channel")
			})
		})
	}

	logger.WithField("redis", cfg.RedisAddr).Info("subscriber running, press Ctrl+C to stop")
	<-ctx.Done()
	wg.Wait()
	logger.Info("subscriber stopped")
}
