package server

import (
	"context"
	"errors"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Addr    string // Server bind address (e.g., ":8090")
	DevMode bool   // Enable development mode (detailed error responses)
	APIKey  string // Optional API key for authentication

	WriteTimeout    time.Duration // Defaults to 75s
	ShutdownTimeout time.Duration // Defaults to 10s

	// Now is the clock request signatures are checked against. Defaults to
	// time.Now.
	Now func() time.Time
	// Replay remembers accepted signatures. Defaults to an in-process set,
	// which does not cover other replicas.
	Replay storage.ReplayGuard
}

// ServerDeps contains dependencies required to create a new Server
type ServerDeps struct {
	Handlers *Handlers
	Config   ServerConfig
}

// Server wraps the Echo server serving the ledger API.
type Server struct {
	e      *echo.Echo
	cfg    ServerConfig
	closed chan struct{}
}

// NewServer builds the API around h. The engine is required; the cache,
// switches and assistant are optional and their routes answer 503 without
// them.
func NewServer(deps ServerDeps) (*Server, error) {
	h := deps.Handlers
	if h == nil || h.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	cfg := deps.Config
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 75 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(h.logger()))

	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.Server.IdleTimeout = 60 * time.Second

	RegisterRoutes(e, h, cfg)

	return &Server{e: e, cfg: cfg, closed: make(chan struct{})}, nil
}

// Start begins serving HTTP requests on the configured address
func (s *Server) Start() error {
	return s.e.Start(s.cfg.Addr)
}

// Shutdown stops accepting requests and waits for in-flight ledger
// operations up to the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.e.Shutdown(ctx)
}

// WaitClosed blocks until the server is fully shut down or context times out
func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

// requestLogger logs one line per request, with the signing principal when
// the request carried one.
func requestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if pk, ok := principal(c); ok {
				entry = entry.WithField("principal", pk.String())
			}
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			if v.Status >= 500 {
				entry.Warn("request")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	})
}

// SetNoCacheHeaders keeps balances and quotes out of intermediate caches.
func SetNoCacheHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

// SetJSONContentType middleware ensures all responses have JSON content type
func SetJSONContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return next(c)
	}
}
