package asset

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TransferHook runs after a successful balance move, outside the token lock,
// so it may call back into whatever initiated the transfer.
type TransferHook func(ctx context.Context, from, to solana.PublicKey, amount uint64)

type allowanceKey struct {
	owner   solana.PublicKey
	spender solana.PublicKey
}

// Token is an in-memory fungible token used by the memory backend and tests.
type Token struct {
	mint     solana.PublicKey
	symbol   string
	decimals uint8

	mu         sync.Mutex
	balances   map[solana.PublicKey]uint64
	allowances map[allowanceKey]uint64
	supply     uint64
	hook       TransferHook
}

func NewToken(mint solana.PublicKey, symbol string, decimals uint8) *Token {
	return &Token{
		mint:       mint,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[solana.PublicKey]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

func (t *Token) Address() solana.PublicKey { return t.mint }
func (t *Token) Symbol() string            { return t.symbol }
func (t *Token) Decimals() uint8           { return t.decimals }

// SetHook installs a hook called after every successful transfer.
func (t *Token) SetHook(h TransferHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

// Mint creates new units for account.
func (t *Token) Mint(account solana.PublicKey, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	supply, carry := bits.Add64(t.supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%s: mint overflows supply", t.symbol)
	}
	t.supply = supply
	t.balances[account] += amount
	return nil
}

func (t *Token) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply
}

func (t *Token) BalanceOf(_ context.Context, account solana.PublicKey) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account], nil
}

func (t *Token) Allowance(_ context.Context, owner, spender solana.PublicKey) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[allowanceKey{owner, spender}], nil
}

func (t *Token) Approve(_ context.Context, owner, spender solana.PublicKey, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := allowanceKey{owner, spender}
	if amount == 0 {
		delete(t.allowances, key)
		return nil
	}
	t.allowances[key] = amount
	return nil
}

func (t *Token) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	t.mu.Lock()
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

func (t *Token) TransferFrom(ctx context.Context, spender, from, to solana.PublicKey, amount uint64) error {
	t.mu.Lock()
	key := allowanceKey{from, spender}
	allowed := t.allowances[key]
	if allowed < amount {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w: have %d, need %d", t.symbol, ErrInsufficientAllowance, allowed, amount)
	}
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	if allowed-amount == 0 {
		delete(t.allowances, key)
	} else {
		t.allowances[key] = allowed - amount
	}
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

// move must be called with t.mu held.
func (t *Token) move(from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%s: %w", t.symbol, ErrZeroAmount)
	}
	bal := t.balances[from]
	if bal < amount {
		return fmt.Errorf("%s: %w: have %d, need %d", t.symbol, ErrInsufficientFunds, bal, amount)
	}
	t.balances[from] = bal - amount
	t.balances[to] += amount
	return nil
}
