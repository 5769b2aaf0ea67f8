package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/orca"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidIntent = errors.New("invalid swap intent")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrQuoteFailed   = errors.New("quote failed")
)

// quoteFunc prices amountIn along path on one router.
type quoteFunc func(ctx context.Context, path []solana.PublicKey, amountIn uint64) (uint64, error)

// DecisionEngine turns a SwapIntent into a ledger SwapRequest.
type DecisionEngine struct {
	risk   RiskConfig
	source asset.Handle
	dest   asset.Handle
	now    func() time.Time
}

func NewDecisionEngine(risk RiskConfig, source, dest asset.Handle, now func() time.Time) *DecisionEngine {
	if now == nil {
		now = time.Now
	}
	return &DecisionEngine{risk: risk, source: source, dest: dest, now: now}
}

func (de *DecisionEngine) ValidateIntent(intent *SwapIntent) error {
	if intent == nil {
		return fmt.Errorf("%w: intent is nil", ErrInvalidIntent)
	}
	if !intent.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidIntent)
	}
	if intent.SlippageBps != nil && *intent.SlippageBps > de.risk.MaxSlippageBps {
		return fmt.Errorf("%w: slippage %d bps exceeds max %d bps",
			ErrInvalidIntent, *intent.SlippageBps, de.risk.MaxSlippageBps)
	}
	return nil
}

func (de *DecisionEngine) EnrichIntent(intent *SwapIntent) {
	if len(intent.Path) == 0 {
		intent.Path = []solana.PublicKey{de.source.Address(), de.dest.Address()}
	}
	if intent.SlippageBps == nil && intent.MinOut == nil {
		v := de.risk.DefaultSlippageBps
		intent.SlippageBps = &v
	}
	if intent.Deadline.IsZero() {
		intent.Deadline = de.now().Add(de.risk.DeadlineWindow)
	}
}

// BuildRequest validates and enriches intent and converts it to a ledger
// request in raw units. MinOut is left unset unless the intent carries one.
func (de *DecisionEngine) BuildRequest(intent *SwapIntent) (treasury.SwapRequest, error) {
	if err := de.ValidateIntent(intent); err != nil {
		return treasury.SwapRequest{}, err
	}
	de.EnrichIntent(intent)

	amountIn, err := asset.ToRaw(intent.Amount, de.source.Decimals())
	if err != nil {
		return treasury.SwapRequest{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if amountIn == 0 {
		return treasury.SwapRequest{}, fmt.Errorf("%w: amount is below one raw unit", ErrInvalidIntent)
	}

	req := treasury.SwapRequest{
		Path:     intent.Path,
		AmountIn: amountIn,
		Router:   intent.Router,
		Deadline: intent.Deadline,
	}
	if intent.MinOut != nil {
		req.MinOut = *intent.MinOut
	}
	return req, nil
}

// PriceRequest quotes req on the selected router and derives MinOut from the
// slippage tolerance. Intents with an explicit MinOut are not quoted and
// report a zero quotedOut.
func (de *DecisionEngine) PriceRequest(ctx context.Context, req *treasury.SwapRequest, intent *SwapIntent, quote quoteFunc) (quotedOut uint64, err error) {
	if intent.MinOut != nil {
		return 0, nil
	}
	quotedOut, err = quote(ctx, req.Path, req.AmountIn)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuoteFailed, err)
	}
	req.MinOut = orca.ApplySlippage(quotedOut, *intent.SlippageBps)
	return quotedOut, nil
}
