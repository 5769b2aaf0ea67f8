package engine

import (
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SwapIntent is a swap as a client asks for it: a human-unit amount and
// optional protections the decision engine fills in.
type SwapIntent struct {
	// Amount of the source asset in whole units (e.g. 1.5 WETH).
	Amount decimal.Decimal
	Router treasury.RouterSelector

	// Path defaults to [source, dest].
	Path []solana.PublicKey

	// SlippageBps is applied to a fresh quote to derive MinOut. Ignored when
	// MinOut is set.
	SlippageBps *uint16
	// MinOut in raw destination units.
	MinOut *uint64

	// Deadline defaults to now plus the engine's deadline window.
	Deadline time.Time
}

// SwapResult is returned for every swap the ledger accepted.
type SwapResult struct {
	Router      string          `json:"router"`
	AmountIn    uint64          `json:"amount_in"`
	QuotedOut   uint64          `json:"quoted_out,omitempty"`
	MinOut      uint64          `json:"min_out"`
	AmountOut   uint64          `json:"amount_out"`
	AmountOutUI decimal.Decimal `json:"amount_out_ui"`
	Deadline    time.Time       `json:"deadline"`
	Duration    time.Duration   `json:"duration_ns"`
}

// QuoteResult prices a swap on one router without moving funds.
type QuoteResult struct {
	Router      string          `json:"router"`
	AmountIn    uint64          `json:"amount_in"`
	AmountOut   uint64          `json:"amount_out"`
	AmountOutUI decimal.Decimal `json:"amount_out_ui"`
	QuotedAt    time.Time       `json:"quoted_at"`
}

type TokenInfo struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type RouterInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Info describes how the engine was assembled.
type Info struct {
	Backend string      `json:"backend"`
	Source  TokenInfo   `json:"source"`
	Dest    TokenInfo   `json:"dest"`
	RouterA RouterInfo  `json:"router_a"`
	RouterB RouterInfo  `json:"router_b"`
	Pools   []string    `json:"pools"`
	Risk    *RiskStatus `json:"risk"`
}
