package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/jupiter"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Quote prices a source -> dest swap on one of the ledger's routers.
// Query: router (a|b), amount (whole source units).
func (h *Handlers) Quote(c echo.Context) error {
	sel, err := treasury.ParseRouterSelector(c.QueryParam("router"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid router", map[string]any{"router": "must be a, b, 0 or 1"})
	}
	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a decimal"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Engine.Quote(ctx, sel, amount)
	if err != nil {
		return h.ledgerErr(c, "quote", err)
	}
	return c.JSON(http.StatusOK, out)
}

// JupiterQuote passes a quote for the ledger's pair through to Jupiter.
// Amount is in raw source units; mints default to the ledger's assets.
func (h *Handlers) JupiterQuote(c echo.Context) error {
	if h.Jupiter == nil {
		return h.err(c, http.StatusBadRequest, "jupiter is not configured", nil)
	}

	l := h.Engine.Ledger()
	path := []solana.PublicKey{l.SourceAsset().Address(), l.DestAsset().Address()}
	for i, param := range []string{"inputMint", "outputMint"} {
		v := strings.TrimSpace(c.QueryParam(param))
		if v == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid "+param, map[string]any{param: "must be a base58 mint"})
		}
		path[i] = pk
	}
	if err := l.CheckDirection(path); err != nil {
		return h.ledgerErr(c, "jupiter quote", err)
	}
	inputMint, outputMint := path[0].String(), path[1].String()

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	if _, err := strconv.ParseUint(amountStr, 10, 64); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}

	var slippageBps *uint16
	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
		}
		tmp := uint16(n)
		slippageBps = &tmp
	}

	var onlyDirectRoutes *bool
	if v := strings.TrimSpace(c.QueryParam("onlyDirectRoutes")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid onlyDirectRoutes", map[string]any{"onlyDirectRoutes": "must be boolean"})
		}
		onlyDirectRoutes = &b
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Jupiter.Quote(ctx, jupiter.QuoteRequest{
		InputMint:        inputMint,
		OutputMint:       outputMint,
		Amount:           amountStr,
		SlippageBps:      slippageBps,
		SwapMode:         "ExactIn",
		Dexes:            splitCSVQuery(c.QueryParams()["dexes"]),
		ExcludeDexes:     splitCSVQuery(c.QueryParams()["excludeDexes"]),
		OnlyDirectRoutes: onlyDirectRoutes,
	})
	if err != nil {
		return h.err(c, http.StatusBadGateway, "jupiter quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, out)
}
