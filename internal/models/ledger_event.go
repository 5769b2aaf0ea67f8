package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventDeposit    EventKind = "deposit"
	EventSwap       EventKind = "swap"
	EventWithdrawal EventKind = "withdrawal"
)

type EventStatus string

const (
	StatusOK     EventStatus = "ok"
	StatusFailed EventStatus = "failed"
)

// LedgerEvent records one ledger operation, successful or not. Raw amounts
// are token units; the UI fields carry the same amounts scaled by decimals.
type LedgerEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      EventKind   `json:"kind"`
	Status    EventStatus `json:"status"`
	Caller    string      `json:"caller"`
	Router    string      `json:"router,omitempty"`

	AssetIn     string          `json:"asset_in,omitempty"`
	AssetOut    string          `json:"asset_out,omitempty"`
	AmountIn    uint64          `json:"amount_in"`
	AmountOut   uint64          `json:"amount_out"`
	AmountInUI  decimal.Decimal `json:"amount_in_ui"`
	AmountOutUI decimal.Decimal `json:"amount_out_ui"`

	// Ledger balances after the operation.
	SourceBalance uint64 `json:"source_balance"`
	DestBalance   uint64 `json:"dest_balance"`

	Error string `json:"error,omitempty"`
}

// Pair is the event's asset pair as SYMBOL_IN/SYMBOL_OUT, or the single
// asset for deposits and withdrawals.
func (e *LedgerEvent) Pair() string {
	switch {
	case e.AssetIn != "" && e.AssetOut != "":
		return e.AssetIn + "/" + e.AssetOut
	case e.AssetIn != "":
		return e.AssetIn
	default:
		return e.AssetOut
	}
}
