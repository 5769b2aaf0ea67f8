package rpc

import (
	"errors"
	"strings"
)

var ErrAccountNotFound = errors.New("account not found")

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// IsAccountNotFound reports whether the node rejected the call because the
// account does not exist (getTokenAccountBalance returns -32602 for that).
func (e *RPCError) IsAccountNotFound() bool {
	return e.Code == -32602 && strings.Contains(strings.ToLower(e.Message), "could not find account")
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int      `json:"decimals"`
	UIAmountString string   `json:"uiAmountString"`
	UIAmount       *float64 `json:"uiAmount"`
}

// TokenAccountBalanceResponse is the response from getTokenAccountBalance
type TokenAccountBalanceResponse struct {
	Result struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value TokenAmount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// ParsedTokenAccountInfo is the "info" object of a jsonParsed SPL token account
type ParsedTokenAccountInfo struct {
	Mint            string       `json:"mint"`
	Owner           string       `json:"owner"`
	State           string       `json:"state"`
	TokenAmount     TokenAmount  `json:"tokenAmount"`
	Delegate        string       `json:"delegate,omitempty"`
	DelegatedAmount *TokenAmount `json:"delegatedAmount,omitempty"`
}

// ParsedAccountResponse is the response from getAccountInfo with jsonParsed encoding
type ParsedAccountResponse struct {
	Result struct {
		Value *struct {
			Owner string `json:"owner"`
			Data  struct {
				Program string `json:"program"`
				Parsed  struct {
					Type string                 `json:"type"`
					Info ParsedTokenAccountInfo `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
