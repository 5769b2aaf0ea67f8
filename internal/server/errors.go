package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/solana-treasury/internal/engine"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// ledgerStatuses maps ledger and engine failures to HTTP statuses. Order
// matters: the first match wins.
var ledgerStatuses = []struct {
	err    error
	status int
}{
	{treasury.ErrUnauthorized, http.StatusForbidden},
	{treasury.ErrPaused, http.StatusServiceUnavailable},
	{treasury.ErrInvalidSwapDirection, http.StatusBadRequest},
	{treasury.ErrInvalidRouterSelector, http.StatusBadRequest},
	{engine.ErrInvalidIntent, http.StatusBadRequest},
	{engine.ErrInvalidAmount, http.StatusBadRequest},
	{treasury.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{treasury.ErrTransferFailed, http.StatusUnprocessableEntity},
	{engine.ErrRiskLimit, http.StatusUnprocessableEntity},
	{treasury.ErrBalanceOverflow, http.StatusConflict},
	{treasury.ErrSwapFailed, http.StatusBadGateway},
	{engine.ErrQuoteFailed, http.StatusBadGateway},
	{engine.ErrSandboxUnavailable, http.StatusNotFound},
}

// ledgerError classifies err. The returned message is the sentinel's text
// so internal details only reach clients in dev mode.
func ledgerError(err error) (int, string) {
	for _, m := range ledgerStatuses {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}
