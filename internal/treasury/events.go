package treasury

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sinkTimeout = 5 * time.Second

// EventSink receives a record of every ledger operation. Sinks are
// best-effort: their errors are logged and never change the outcome of the
// operation.
type EventSink interface {
	RecordEvent(ctx context.Context, ev *models.LedgerEvent) error
}

// Operation names an operation that can be paused.
type Operation string

const (
	OpDeposit Operation = "deposit"
	OpSwap    Operation = "swap"
)

// Switches reports whether an operation is paused. Withdrawal is never
// subject to switches.
type Switches interface {
	Paused(ctx context.Context, op Operation) (bool, error)
}

func (l *Ledger) paused(ctx context.Context, op Operation) error {
	if l.switches == nil {
		return nil
	}
	paused, err := l.switches.Paused(ctx, op)
	if err != nil {
		// Switch storage outages must not stop the ledger.
		l.logger.WithError(err).WithField("op", op).Warn("pause switch unreadable, proceeding")
		return nil
	}
	if paused {
		return ErrPaused
	}
	return nil
}

type eventInput struct {
	kind      models.EventKind
	caller    string
	router    string
	in, out   asset.Handle
	amountIn  uint64
	amountOut uint64
	err       error
}

func (l *Ledger) emit(ctx context.Context, in eventInput) {
	state := l.Snapshot()

	ev := &models.LedgerEvent{
		ID:            uuid.NewString(),
		Timestamp:     l.now().UTC(),
		Kind:          in.kind,
		Status:        models.StatusOK,
		Caller:        in.caller,
		Router:        in.router,
		AmountIn:      in.amountIn,
		AmountOut:     in.amountOut,
		SourceBalance: state.SourceBalance,
		DestBalance:   state.DestBalance,
	}
	if in.in != nil {
		ev.AssetIn = in.in.Symbol()
		ev.AmountInUI = asset.FromRaw(in.amountIn, in.in.Decimals())
	}
	if in.out != nil {
		ev.AssetOut = in.out.Symbol()
		ev.AmountOutUI = asset.FromRaw(in.amountOut, in.out.Decimals())
	}
	if in.err != nil {
		ev.Status = models.StatusFailed
		ev.Error = in.err.Error()
	}

	fields := logrus.Fields{
		"event_id":       ev.ID,
		"kind":           ev.Kind,
		"caller":         ev.Caller,
		"amount_in":      ev.AmountIn,
		"amount_out":     ev.AmountOut,
		"source_balance": ev.SourceBalance,
		"dest_balance":   ev.DestBalance,
	}
	if ev.Router != "" {
		fields["router"] = ev.Router
	}
	if in.err != nil {
		l.logger.WithFields(fields).WithError(in.err).Warn("ledger operation rejected")
	} else {
		l.logger.WithFields(fields).Info("ledger operation completed")
	}

	if len(l.events) == 0 {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range l.events {
		if err := s.RecordEvent(sctx, ev); err != nil {
			l.logger.WithError(err).WithField("event_id", ev.ID).Warn("event sink failed")
		}
	}
}
