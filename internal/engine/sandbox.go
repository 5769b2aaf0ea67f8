package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrSandboxUnavailable = errors.New("sandbox is only available on the memory backend")

// SandboxMint credits account with amount (whole units) of mint.
func (e *Engine) SandboxMint(account, mint solana.PublicKey, amount decimal.Decimal) (uint64, error) {
	if e.tokens == nil {
		return 0, ErrSandboxUnavailable
	}
	tok, ok := e.tokens[mint]
	if !ok {
		return 0, fmt.Errorf("%w: unknown mint %s", ErrInvalidAmount, mint)
	}
	raw, err := e.toRaw(tok, amount)
	if err != nil {
		return 0, err
	}
	if err := tok.Mint(account, raw); err != nil {
		return 0, err
	}
	e.logger.WithFields(logrus.Fields{
		"account": account.String(),
		"asset":   tok.Symbol(),
		"amount":  raw,
	}).Info("sandbox mint")
	return raw, nil
}

// SandboxApprove lets custody pull amount (whole source units) from owner,
// the allowance Deposit needs.
func (e *Engine) SandboxApprove(ctx context.Context, owner solana.PublicKey, amount decimal.Decimal) (uint64, error) {
	if e.tokens == nil {
		return 0, ErrSandboxUnavailable
	}
	src := e.ledger.SourceAsset()
	raw, err := e.toRaw(src, amount)
	if err != nil {
		return 0, err
	}
	if err := src.Approve(ctx, owner, e.ledger.Custody(), raw); err != nil {
		return 0, err
	}
	return raw, nil
}

// BalanceOf reads account's balance of mint.
func (e *Engine) BalanceOf(ctx context.Context, account, mint solana.PublicKey) (uint64, error) {
	h, err := e.assets.Get(mint)
	if err != nil {
		return 0, err
	}
	return h.BalanceOf(ctx, account)
}
