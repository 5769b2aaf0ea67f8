package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAmount            = errors.New("amount must be > 0")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrNoSigner              = errors.New("no signer for account")
)

// Handle is a reference to a fungible asset. Every mutating call names the
// acting principal explicitly (from/owner/spender).
type Handle interface {
	Address() solana.PublicKey
	Symbol() string
	Decimals() uint8

	BalanceOf(ctx context.Context, account solana.PublicKey) (uint64, error)
	Allowance(ctx context.Context, owner, spender solana.PublicKey) (uint64, error)

	Approve(ctx context.Context, owner, spender solana.PublicKey, amount uint64) error
	Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error
	TransferFrom(ctx context.Context, spender, from, to solana.PublicKey, amount uint64) error
}

// Registry resolves asset handles by mint address.
type Registry struct {
	mu     sync.RWMutex
	assets map[solana.PublicKey]Handle
}

func NewRegistry(handles ...Handle) *Registry {
	r := &Registry{assets: make(map[solana.PublicKey]Handle, len(handles))}
	for _, h := range handles {
		r.Register(h)
	}
	return r
}

func (r *Registry) Register(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[h.Address()] = h
}

func (r *Registry) Get(addr solana.PublicKey) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.assets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr)
	}
	return h, nil
}

// BySymbol returns the first registered asset with the given symbol.
func (r *Registry) BySymbol(symbol string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.assets {
		if h.Symbol() == symbol {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
}

// maxRawDigits is the number of decimal digits in math.MaxUint64.
const maxRawDigits = 20

// ToRaw converts a human-readable amount (e.g. "1.5") into raw token units.
// The exponent is bounded before any arithmetic, so inputs such as
// "1e20000000" are refused without expanding them.
func ToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	if amount.IsZero() {
		return 0, nil
	}

	exp := int64(amount.Exponent()) + int64(decimals)
	digits := int64(amount.NumDigits())
	if exp > 0 && digits+exp > maxRawDigits {
		return 0, fmt.Errorf("amount %s overflows uint64", describe(amount))
	}
	if exp < 0 && -exp >= digits {
		// The coefficient is shorter than the fraction, so the amount is
		// below one raw unit or not whole in raw units.
		return 0, fmt.Errorf("amount %s has more than %d decimal places", describe(amount), decimals)
	}

	raw := amount.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", describe(amount), decimals)
	}
	bi := raw.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64", describe(amount))
	}
	return bi.Uint64(), nil
}

// describe renders amount for error messages in bounded length.
func describe(amount decimal.Decimal) string {
	const maxLen = 32
	var s string
	if e := amount.Exponent(); e > maxRawDigits || e < -2*maxRawDigits {
		s = fmt.Sprintf("%se%d", amount.Coefficient(), e)
	} else {
		s = amount.String()
	}
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}

// FromRaw converts raw token units into a human-readable decimal.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}
