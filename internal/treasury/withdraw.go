package treasury

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/gagliardetto/solana-go"
)

// WithdrawAll pays the whole destination balance to the owner. The balance
// is zeroed before the transfer, so a re-entrant call sees nothing to pay,
// and restored if the transfer fails. A zero balance is a no-op.
func (l *Ledger) WithdrawAll(ctx context.Context, caller solana.PublicKey) (amount uint64, err error) {
	defer func() {
		l.emit(ctx, eventInput{
			kind:      models.EventWithdrawal,
			caller:    caller.String(),
			out:       l.dest,
			amountOut: amount,
			err:       err,
		})
	}()

	if !l.guard.IsOwner(caller) {
		return 0, fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}

	cp := l.begin()
	amount = cp.debitAll(destAccount)
	if amount == 0 {
		return 0, nil
	}

	if err := l.dest.Transfer(ctx, l.custody, l.guard.Owner(), amount); err != nil {
		cp.revert()
		return 0, fmt.Errorf("%w: pay %d %s to owner: %w", ErrTransferFailed, amount, l.dest.Symbol(), err)
	}
	if err := cp.commit(); err != nil {
		return 0, err
	}
	return amount, nil
}
