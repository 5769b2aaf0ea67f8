package jupiter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// QuoteRequest is a /quote query. The ledger only prices with Jupiter and
// never builds its swap transactions, so transaction-building options are
// not exposed.
type QuoteRequest struct {
	InputMint  string
	OutputMint string
	Amount     string // raw integer as string (uint64)

	SlippageBps *uint16
	SwapMode    string // ExactIn | ExactOut

	Dexes        []string
	ExcludeDexes []string

	RestrictIntermediateTokens *bool
	OnlyDirectRoutes           *bool
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64  `json:"contextSlot,omitempty"`
	TimeTaken   float64 `json:"timeTaken,omitempty"`
}

type PlatformFee struct {
	Amount string `json:"amount,omitempty"`
	FeeBps uint16 `json:"feeBps,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
	Bps      uint16   `json:"bps"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`

	FeeAmount *string `json:"feeAmount,omitempty"`
	FeeMint   *string `json:"feeMint,omitempty"`
}

// OutAmountRaw parses OutAmount as raw token units.
func (r *QuoteResponse) OutAmountRaw() (uint64, error) {
	return parseRaw("outAmount", r.OutAmount)
}

// MinOutRaw parses the slippage-adjusted minimum output of an ExactIn quote.
func (r *QuoteResponse) MinOutRaw() (uint64, error) {
	return parseRaw("otherAmountThreshold", r.OtherAmountThreshold)
}

// PriceImpactBps converts PriceImpactPct, a fraction such as "0.0012", to
// basis points rounded up. An empty value is zero impact.
func (r *QuoteResponse) PriceImpactBps() (uint64, error) {
	if r.PriceImpactPct == "" {
		return 0, nil
	}
	pct, err := decimal.NewFromString(r.PriceImpactPct)
	if err != nil {
		return 0, fmt.Errorf("invalid priceImpactPct %q: %w", r.PriceImpactPct, err)
	}
	bps := pct.Abs().Mul(decimal.NewFromInt(10_000)).Ceil()
	return bps.BigInt().Uint64(), nil
}

// Venues lists the AMM labels the route passes through, in order.
func (r *QuoteResponse) Venues() []string {
	out := make([]string, 0, len(r.RoutePlan))
	for _, step := range r.RoutePlan {
		label := step.SwapInfo.Label
		if label == "" {
			label = step.SwapInfo.AmmKey
		}
		out = append(out, label)
	}
	return out
}

func parseRaw(field, v string) (uint64, error) {
	out, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	return out, nil
}
