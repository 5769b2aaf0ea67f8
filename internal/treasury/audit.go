package treasury

import (
	"context"
	"fmt"
	"time"
)

// AuditReport compares internal balances with what custody actually holds.
// Internal balances must never exceed custody holdings; a surplus is funds
// custody holds that the ledger does not account for.
type AuditReport struct {
	CheckedAt time.Time `json:"checked_at"`

	SourceBalance uint64 `json:"source_balance"`
	SourceCustody uint64 `json:"source_custody"`
	SourceSurplus uint64 `json:"source_surplus"`
	SourceOK      bool   `json:"source_ok"`

	DestBalance uint64 `json:"dest_balance"`
	DestCustody uint64 `json:"dest_custody"`
	DestSurplus uint64 `json:"dest_surplus"`
	DestOK      bool   `json:"dest_ok"`
}

func (r *AuditReport) OK() bool { return r.SourceOK && r.DestOK }

// Audit reads custody balances of both assets and checks them against the
// ledger. It has no side effects.
func (l *Ledger) Audit(ctx context.Context) (*AuditReport, error) {
	srcHeld, err := l.source.BalanceOf(ctx, l.custody)
	if err != nil {
		return nil, fmt.Errorf("read %s custody balance: %w", l.source.Symbol(), err)
	}
	dstHeld, err := l.dest.BalanceOf(ctx, l.custody)
	if err != nil {
		return nil, fmt.Errorf("read %s custody balance: %w", l.dest.Symbol(), err)
	}

	state := l.Snapshot()
	r := &AuditReport{
		CheckedAt:     l.now().UTC(),
		SourceBalance: state.SourceBalance,
		SourceCustody: srcHeld,
		SourceOK:      state.SourceBalance <= srcHeld,
		DestBalance:   state.DestBalance,
		DestCustody:   dstHeld,
		DestOK:        state.DestBalance <= dstHeld,
	}
	if r.SourceOK {
		r.SourceSurplus = srcHeld - state.SourceBalance
	}
	if r.DestOK {
		r.DestSurplus = dstHeld - state.DestBalance
	}

	if !r.OK() {
		l.logger.WithField("report", fmt.Sprintf("%+v", *r)).Error("ledger exceeds custody holdings")
	}
	return r, nil
}
