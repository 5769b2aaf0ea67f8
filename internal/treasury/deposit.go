package treasury

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/gagliardetto/solana-go"
)

// Deposit pulls amount of the source asset from caller into custody and
// credits it to the source balance. The caller must have approved custody
// as spender for at least amount beforehand.
func (l *Ledger) Deposit(ctx context.Context, caller solana.PublicKey, amount uint64) (err error) {
	defer func() {
		l.emit(ctx, eventInput{
			kind:     models.EventDeposit,
			caller:   caller.String(),
			in:       l.source,
			amountIn: amount,
			err:      err,
		})
	}()

	if err := l.paused(ctx, OpDeposit); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrTransferFailed)
	}
	if caller.Equals(l.custody) {
		return fmt.Errorf("%w: custody cannot deposit to itself", ErrTransferFailed)
	}

	cp := l.begin()
	if err := cp.reserveCredit(sourceAccount, amount); err != nil {
		return err
	}

	if err := l.source.TransferFrom(ctx, l.custody, caller, l.custody, amount); err != nil {
		cp.revert()
		return fmt.Errorf("%w: pull %d %s from %s: %w", ErrTransferFailed, amount, l.source.Symbol(), caller, err)
	}
	return cp.commit()
}
