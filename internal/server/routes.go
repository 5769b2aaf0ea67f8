package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/cache"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func rateLimit(r rate.Limit, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      r,
		Burst:     burst,
		ExpiresIn: 2 * time.Minute,
	}))
}

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	seen := cfg.Replay
	if seen == nil {
		seen = cache.NewMemoryReplayGuard()
	}
	signed := SignedPrincipal(cfg.Now, seen, h.logger())

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/state", h.State)
	v1.GET("/info", h.Info)
	v1.GET("/audit", h.Audit)
	v1.GET("/quote", h.Quote)
	v1.GET("/quote/jupiter", h.JupiterQuote)
	v1.GET("/events/recent", h.RecentEvents)

	// Ledger mutations: signed and rate limited per client IP
	mutation := []echo.MiddlewareFunc{signed, rateLimit(rate.Limit(5), 10)}
	v1.POST("/deposits", h.Deposit, mutation...)
	v1.POST("/swaps", h.Swap, mutation...)
	v1.POST("/withdrawals", h.Withdraw, mutation...)

	// Operational switches: owner only
	sw := v1.Group("/switches", signed, OwnerOnly(h.Engine.State().Owner))
	sw.GET("", h.SwitchesList)
	sw.GET("/:key", h.SwitchesGet)
	sw.PUT("/:key", h.SwitchesSet)
	sw.DELETE("/:key", h.SwitchesDelete)

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai", rateLimit(rate.Limit(0.2), 2)) // 1 request every 5 seconds
	aigroup.POST("/ask", h.AIAsk)

	// Test funding for the memory backend
	if h.sandboxEnabled() {
		sb := v1.Group("/sandbox")
		sb.POST("/mint", h.SandboxMint)
		sb.POST("/approve", h.SandboxApprove, signed)
	}

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
