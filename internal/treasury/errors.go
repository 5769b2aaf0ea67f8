package treasury

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrTransferFailed        = errors.New("transfer failed")
	ErrInvalidSwapDirection  = errors.New("invalid swap direction")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidRouterSelector = errors.New("invalid router selector")
	ErrSwapFailed            = errors.New("swap failed")
	ErrUnauthorized          = errors.New("unauthorized")

	ErrBalanceOverflow = errors.New("balance overflow")
	ErrPaused          = errors.New("operation paused")
	ErrInvalidConfig   = errors.New("invalid ledger config")
)

const (
	SideSource      = "source"
	SideDestination = "destination"
)

// DirectionError reports which end of a swap path broke the asset policy.
type DirectionError struct {
	Side string
	Want solana.PublicKey
	// Got is zero when the path is empty.
	Got solana.PublicKey
}

func (e *DirectionError) Error() string {
	if e.Side == SideSource {
		return fmt.Sprintf("%s: only %s may be swapped from, path starts at %s", ErrInvalidSwapDirection, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: only %s may be swapped to, path ends at %s", ErrInvalidSwapDirection, e.Want, e.Got)
}

func (e *DirectionError) Unwrap() error { return ErrInvalidSwapDirection }
