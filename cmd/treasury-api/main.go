package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/ai"
	"github.com/aman-zulfiqar/solana-treasury/internal/cache"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/engine"
	"github.com/aman-zulfiqar/solana-treasury/internal/flags"
	"github.com/aman-zulfiqar/solana-treasury/internal/jupiter"
	"github.com/aman-zulfiqar/solana-treasury/internal/server"
	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the ledger engine, its event sinks and switches, and serves the
// HTTP API until interrupted.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Redis carries recent events, pub/sub, switches and seen request
	// signatures. The ledger runs
	// without it; those features are then reported as unavailable.
	var (
		sinks     []treasury.EventSink
		eventLog  storage.EventCache
		flagStore *flags.Store
		replay    storage.ReplayGuard
	)
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, events and switches disabled")
		_ = rclient.Close()
	} else {
		defer rclient.Close()
		rc := cache.NewRedisCacheFromClient(rclient, logger)
		eventLog = rc
		sinks = append(sinks, rc)
		replay = cache.NewRedisReplayGuard(rclient)

		fs, err := flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create switch store")
		}
		flagStore = fs
	}

	// ClickHouse keeps the full journal the AI assistant queries.
	var journal storage.EventStore
	ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).WithField("addr", cfg.ClickHouseAddr).Warn("clickhouse unavailable, journal disabled")
	} else if err := ch.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Warn("clickhouse schema setup failed, journal disabled")
		_ = ch.Close()
	} else {
		journal = ch
		defer journal.Close()
		sinks = append(sinks, ch)
	}

	opts := engine.Options{Sinks: sinks, Logger: logger}
	if flagStore != nil {
		opts.Switches = flagStore
	}
	eng, err := engine.New(ctx, cfg, opts)
	if err != nil {
		logger.WithError(err).Fatal("failed to build treasury engine")
	}
	defer eng.Close()

	var agent *ai.Agent
	if cfg.OpenRouterAPIKey != "" && journal != nil {
		info := eng.Info()
		a, err := ai.NewAgent(ctx, ai.AgentConfig{
			ClickHouseAddr:     cfg.ClickHouseAddr,
			ClickHouseDatabase: cfg.ClickHouseDatabase,
			ClickHouseUsername: cfg.ClickHouseUsername,
			ClickHousePassword: cfg.ClickHousePassword,
			OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
			Model:              cfg.AIModel,
			Ledger: ai.LedgerContext{
				Source:  info.Source.Symbol,
				Dest:    info.Dest.Symbol,
				Routers: []string{info.RouterA.Name, info.RouterB.Name},
			},
			Logger: logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer agent.Close()
		}
	}

	h := &server.Handlers{
		Engine:  eng,
		Cache:   eventLog,
		Flags:   flagStore,
		AI:      agent,
		Jupiter: jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, cfg.HTTPTimeout),
		DevMode: cfg.DevMode,
		Logger:  logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:         cfg.APIAddr,
			DevMode:      cfg.DevMode,
			APIKey:       cfg.APIKey,
			WriteTimeout: cfg.APIWriteTimeout,
			Replay:       replay,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	state := eng.State()
	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"backend": eng.Backend(),
		"owner":   state.Owner.String(),
		"custody": state.Custody.String(),
	}).Info("treasury api starting")

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
