package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/gagliardetto/solana-go"
)

// Leg is one asset movement of a swap settlement. A non-zero Spender moves
// funds with TransferFrom under an allowance granted by From.
type Leg struct {
	Asset   asset.Handle
	Spender solana.PublicKey
	From    solana.PublicKey
	To      solana.PublicKey
	Amount  uint64
}

func (l Leg) execute(ctx context.Context) error {
	if l.Spender.IsZero() {
		return l.Asset.Transfer(ctx, l.From, l.To, l.Amount)
	}
	return l.Asset.TransferFrom(ctx, l.Spender, l.From, l.To, l.Amount)
}

// Settle executes legs in order. When a leg fails, every completed leg is
// reversed newest-first with a direct transfer back to its source, so a
// failed settlement leaves balances where they started.
func Settle(ctx context.Context, legs []Leg) error {
	for i, leg := range legs {
		if err := leg.execute(ctx); err != nil {
			err = fmt.Errorf("leg %d (%s %d %s->%s): %w", i, leg.Asset.Symbol(), leg.Amount, leg.From, leg.To, err)
			if cerr := unwind(context.WithoutCancel(ctx), legs[:i]); cerr != nil {
				return errors.Join(err, cerr)
			}
			return err
		}
	}
	return nil
}

func unwind(ctx context.Context, done []Leg) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		leg := done[i]
		if err := leg.Asset.Transfer(ctx, leg.To, leg.From, leg.Amount); err != nil {
			errs = append(errs, fmt.Errorf("unwind leg %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
