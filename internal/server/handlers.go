package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/ai"
	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/engine"
	"github.com/aman-zulfiqar/solana-treasury/internal/flags"
	"github.com/aman-zulfiqar/solana-treasury/internal/jupiter"
	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine  *engine.Engine     // Treasury engine (required)
	Cache   storage.EventCache // Redis-backed recent events (optional)
	Flags   *flags.Store       // Redis-backed operational switches (optional)
	AI      *ai.Agent          // AI agent for natural language queries (optional)
	Jupiter *jupiter.Client    // Jupiter Quote API client (optional)
	DevMode bool               // Enable detailed error responses in development
	Logger  *logrus.Logger     // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// ledgerErr reports a failed ledger operation with the status its cause maps
// to.
func (h *Handlers) ledgerErr(c echo.Context, op string, err error) error {
	code, msg := ledgerError(err)
	entry := h.logger().WithError(err).WithField("op", op)
	if code >= http.StatusInternalServerError {
		entry.Error("ledger operation failed")
	} else {
		entry.Debug("ledger operation rejected")
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// sandboxEnabled reports whether test-funding endpoints are served.
func (h *Handlers) sandboxEnabled() bool {
	return h.DevMode && h.Engine.Backend() == config.BackendMemory
}

func (h *Handlers) stateResponse() StateResponse {
	st := h.Engine.State()
	l := h.Engine.Ledger()
	return StateResponse{
		State:           st,
		SourceBalanceUI: asset.FromRaw(st.SourceBalance, l.SourceAsset().Decimals()),
		DestBalanceUI:   asset.FromRaw(st.DestBalance, l.DestAsset().Decimals()),
	}
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Backend: h.Engine.Backend()})
}

// State returns the ledger's balances and configuration.
func (h *Handlers) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stateResponse())
}

// Info describes the engine: assets, routers, pools and risk usage.
func (h *Handlers) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Engine.Info())
}

// Audit compares internal balances with custody holdings. An audit that
// finds the ledger ahead of custody is returned with 409.
func (h *Handlers) Audit(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	report, err := h.Engine.Audit(ctx)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "audit failed", map[string]any{"err": err.Error()})
	}
	if !report.OK() {
		return c.JSON(http.StatusConflict, report)
	}
	return c.JSON(http.StatusOK, report)
}

// Deposit pulls the requested amount of the source asset from the signing
// principal into custody.
func (h *Handlers) Deposit(c echo.Context) error {
	caller, _ := principal(c)

	var req DepositRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	raw, err := h.Engine.Deposit(ctx, caller, req.Amount)
	if err != nil {
		return h.ledgerErr(c, "deposit", err)
	}
	src := h.Engine.Ledger().SourceAsset()
	return c.JSON(http.StatusOK, AmountResponse{
		Amount:   raw,
		AmountUI: asset.FromRaw(raw, src.Decimals()),
		Asset:    src.Symbol(),
	})
}

// Swap converts part of the source balance through the selected router.
func (h *Handlers) Swap(c echo.Context) error {
	caller, _ := principal(c)

	var req SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	sel, err := treasury.ParseRouterSelector(req.Router)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid router", map[string]any{"router": "must be a, b, 0 or 1"})
	}
	intent := engine.SwapIntent{
		Amount:      req.Amount,
		Router:      sel,
		SlippageBps: req.SlippageBps,
		MinOut:      req.MinOut,
	}
	for _, p := range req.Path {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(p))
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid path", map[string]any{"path": p})
		}
		intent.Path = append(intent.Path, pk)
	}
	if req.DeadlineSeconds < 0 {
		return h.err(c, http.StatusBadRequest, "invalid deadline_seconds", map[string]any{"deadline_seconds": "must be >= 0"})
	}
	if req.DeadlineSeconds > 0 {
		intent.Deadline = time.Now().Add(time.Duration(req.DeadlineSeconds) * time.Second)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	res, err := h.Engine.Swap(ctx, caller, intent)
	if err != nil {
		return h.ledgerErr(c, "swap", err)
	}
	return c.JSON(http.StatusOK, SwapResponse{SwapResult: res, State: h.stateResponse()})
}

// Withdraw sends the whole destination balance to the owner. Only the owner
// may call it; the ledger enforces that.
func (h *Handlers) Withdraw(c echo.Context) error {
	caller, _ := principal(c)

	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	raw, err := h.Engine.WithdrawAll(ctx, caller)
	if err != nil {
		return h.ledgerErr(c, "withdraw", err)
	}
	dst := h.Engine.Ledger().DestAsset()
	return c.JSON(http.StatusOK, AmountResponse{
		Amount:   raw,
		AmountUI: asset.FromRaw(raw, dst.Decimals()),
		Asset:    dst.Symbol(),
	})
}

// RecentEvents returns the most recent ledger events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentEvents(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "event cache is not configured", nil)
	}

	limit := constants.MaxRecentEvents
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentEventsPage {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.RecentEvents(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get events", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SwitchesList returns every operational switch, unset ones as false.
func (h *Handlers) SwitchesList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "switches are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list switches", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SwitchesGet retrieves a switch by its key
// Returns 404 if the switch was never set
func (h *Handlers) SwitchesGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "switches are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"keys": flags.Keys()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "switch not set", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesSet sets a switch and records the signing principal as its author.
func (h *Handlers) SwitchesSet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "switches are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"keys": flags.Keys()})
	}
	var req SwitchUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, _ := principal(c)

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Set(ctx, key, req.Value, caller.String())
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set switch", nil)
	}
	h.logger().WithFields(logrus.Fields{"key": key, "value": req.Value, "by": caller.String()}).Info("switch updated")
	return c.JSON(http.StatusOK, out)
}

// SwitchesDelete clears a switch, which un-pauses its operation.
// Returns 204 No Content on successful deletion
func (h *Handlers) SwitchesDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "switches are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"keys": flags.Keys()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete switch", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// SandboxMint credits any account with a registered memory token.
func (h *Handlers) SandboxMint(c echo.Context) error {
	var req SandboxMintRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	account, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Account))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid account", nil)
	}
	mint := h.Engine.Ledger().SourceAsset().Address()
	if m := strings.TrimSpace(req.Mint); m != "" {
		if mint, err = solana.PublicKeyFromBase58(m); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid mint", nil)
		}
	}

	raw, err := h.Engine.SandboxMint(account, mint, req.Amount)
	if err != nil {
		return h.ledgerErr(c, "sandbox_mint", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"account": account.String(), "mint": mint.String(), "amount": raw})
}

// SandboxApprove grants custody an allowance over the signing principal's
// source tokens.
func (h *Handlers) SandboxApprove(c echo.Context) error {
	caller, _ := principal(c)

	var req SandboxApproveRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw, err := h.Engine.SandboxApprove(ctx, caller, req.Amount)
	if err != nil {
		return h.ledgerErr(c, "sandbox_approve", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"owner": caller.String(), "allowance": raw})
}

// AIAsk processes natural language questions about ledger history using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusServiceUnavailable, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	agent, err := h.AI.WithModel(req.Model)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid model", map[string]any{"model": req.Model})
	}

	res, err := agent.Ask(ctx, req.Question)
	if errors.Is(err, ai.ErrInvalidQuestion) {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{
		SQL:       res.SQL,
		Answer:    res.Answer,
		Model:     agent.Model(),
		Rows:      res.Rows,
		Truncated: res.Truncated,
		TookMs:    time.Since(start).Milliseconds(),
	})
}
