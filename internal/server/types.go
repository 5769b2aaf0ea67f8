package server

import (
	"github.com/aman-zulfiqar/solana-treasury/internal/engine"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
}

// StateResponse is the ledger snapshot with balances in whole units.
type StateResponse struct {
	treasury.State
	SourceBalanceUI decimal.Decimal `json:"source_balance_ui"`
	DestBalanceUI   decimal.Decimal `json:"dest_balance_ui"`
}

// DepositRequest carries an amount of the source asset in whole units.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SwapRequest is the JSON form of engine.SwapIntent.
type SwapRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Router          string          `json:"router"` // "a", "b", "0" or "1"
	Path            []string        `json:"path,omitempty"`
	SlippageBps     *uint16         `json:"slippage_bps,omitempty"`
	MinOut          *uint64         `json:"min_out,omitempty"`
	DeadlineSeconds int64           `json:"deadline_seconds,omitempty"`
}

// AmountResponse reports an amount moved by a ledger operation.
type AmountResponse struct {
	Amount   uint64          `json:"amount"`
	AmountUI decimal.Decimal `json:"amount_ui"`
	Asset    string          `json:"asset"`
}

type SwapResponse struct {
	*engine.SwapResult
	State StateResponse `json:"state"`
}

// SwitchUpdateRequest sets an operational switch.
type SwitchUpdateRequest struct {
	Value bool `json:"value"`
}

// SandboxMintRequest credits an account on the memory backend.
type SandboxMintRequest struct {
	Account string          `json:"account"`
	Mint    string          `json:"mint"`
	Amount  decimal.Decimal `json:"amount"`
}

// SandboxApproveRequest lets custody pull Amount of the source asset from
// the signing principal.
type SandboxApproveRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about ledger history
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL       string `json:"sql"`       // Generated SQL query
	Answer    string `json:"answer"`    // Natural language answer
	Model     string `json:"model"`     // Model that answered
	Rows      int    `json:"rows"`      // Rows handed to the model
	Truncated bool   `json:"truncated"` // More rows matched than were handed over
	TookMs    int64  `json:"took_ms"`   // Execution time in milliseconds
}
