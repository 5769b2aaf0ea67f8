// Package router defines the uniform interface over the swap backends the
// treasury can route through.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrDeadlineExpired = errors.New("deadline expired")
	ErrSlippage        = errors.New("output below minimum")
	ErrNoRoute         = errors.New("no route")
	ErrInvalidPath     = errors.New("invalid path")
	ErrZeroAmount      = errors.New("amountIn must be > 0")
)

// SwapRequest is an exact-input swap along Path. The gateway pulls AmountIn of
// Path[0] from Payer (which must have approved the gateway's Address) and
// delivers the output of Path[len-1] to Recipient.
type SwapRequest struct {
	Path      []solana.PublicKey
	AmountIn  uint64
	MinOut    uint64
	Payer     solana.PublicKey
	Recipient solana.PublicKey
	Deadline  time.Time
}

// Gateway executes swaps on one backend.
type Gateway interface {
	// Address is the principal the payer must approve.
	Address() solana.PublicKey
	Name() string
	SwapExactIn(ctx context.Context, req SwapRequest) (amountOut uint64, err error)
}

// CheckRequest applies the checks every gateway performs before touching
// funds: a path of at least two distinct hops, a non-zero input and a deadline
// that has not passed at now. A zero deadline has always passed.
func CheckRequest(req SwapRequest, now time.Time) error {
	if len(req.Path) < 2 {
		return fmt.Errorf("%w: need at least 2 assets, got %d", ErrInvalidPath, len(req.Path))
	}
	for i := 1; i < len(req.Path); i++ {
		if req.Path[i].Equals(req.Path[i-1]) {
			return fmt.Errorf("%w: hop %d swaps %s for itself", ErrInvalidPath, i, req.Path[i])
		}
	}
	if req.AmountIn == 0 {
		return ErrZeroAmount
	}
	if now.After(req.Deadline) {
		return fmt.Errorf("%w: deadline %s, now %s", ErrDeadlineExpired,
			req.Deadline.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	return nil
}

// CheckMinOut fails with ErrSlippage when out is below minOut.
func CheckMinOut(out, minOut uint64) error {
	if out < minOut {
		return fmt.Errorf("%w: got %d, want at least %d", ErrSlippage, out, minOut)
	}
	return nil
}
