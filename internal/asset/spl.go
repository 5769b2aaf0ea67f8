package asset

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/solana-treasury/internal/rpc"
	"github.com/aman-zulfiqar/solana-treasury/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SPLConfig configures an on-chain SPL token handle.
type SPLConfig struct {
	Mint       solana.PublicKey
	Symbol     string
	Decimals   uint8
	RPC        *rpc.Client
	Commitment string

	// Signers are the wallets this process may act for (custody, routers,
	// market maker). Mutating calls for any other principal fail with ErrNoSigner.
	Signers []*wallet.Wallet

	Logger *logrus.Logger
}

// SPLToken implements Handle over the SPL Token program. Balances and
// allowances are read from the principal's associated token account.
type SPLToken struct {
	cfg     SPLConfig
	signers map[solana.PublicKey]*wallet.Wallet
}

func NewSPLToken(cfg SPLConfig) (*SPLToken, error) {
	if cfg.Mint.IsZero() {
		return nil, fmt.Errorf("spl token: mint is required")
	}
	if cfg.RPC == nil {
		return nil, fmt.Errorf("spl token %s: rpc client is nil", cfg.Symbol)
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	signers := make(map[solana.PublicKey]*wallet.Wallet, len(cfg.Signers))
	for _, w := range cfg.Signers {
		if w != nil {
			signers[w.PublicKey()] = w
		}
	}

	return &SPLToken{cfg: cfg, signers: signers}, nil
}

func (t *SPLToken) Address() solana.PublicKey { return t.cfg.Mint }
func (t *SPLToken) Symbol() string            { return t.cfg.Symbol }
func (t *SPLToken) Decimals() uint8           { return t.cfg.Decimals }

func (t *SPLToken) BalanceOf(ctx context.Context, account solana.PublicKey) (uint64, error) {
	ata, err := FindAssociatedTokenAddress(account, t.cfg.Mint)
	if err != nil {
		return 0, err
	}

	bal, err := t.cfg.RPC.GetTokenAccountBalance(ctx, ata.String(), t.cfg.Commitment)
	if errors.Is(err, rpc.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: balance of %s: %w", t.cfg.Symbol, account, err)
	}
	return bal, nil
}

func (t *SPLToken) Allowance(ctx context.Context, owner, spender solana.PublicKey) (uint64, error) {
	ata, err := FindAssociatedTokenAddress(owner, t.cfg.Mint)
	if err != nil {
		return 0, err
	}

	info, err := t.cfg.RPC.GetParsedTokenAccount(ctx, ata.String(), t.cfg.Commitment)
	if errors.Is(err, rpc.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: allowance of %s: %w", t.cfg.Symbol, owner, err)
	}

	if info.Delegate != spender.String() || info.DelegatedAmount == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(info.DelegatedAmount.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid delegated amount %q: %w", t.cfg.Symbol, info.DelegatedAmount.Amount, err)
	}
	return amount, nil
}

func (t *SPLToken) Approve(ctx context.Context, owner, spender solana.PublicKey, amount uint64) error {
	w, err := t.signer(owner)
	if err != nil {
		return err
	}
	source, err := FindAssociatedTokenAddress(owner, t.cfg.Mint)
	if err != nil {
		return err
	}

	ix := NewTokenApproveIx(source, spender, owner, amount)
	if amount == 0 {
		ix = NewTokenRevokeIx(source, owner)
	}

	sig, err := w.Execute(ctx, []solana.Instruction{ix})
	if err != nil {
		return fmt.Errorf("%s: approve %s: %w", t.cfg.Symbol, spender, err)
	}
	t.log(sig, "approve", owner, spender, amount)
	return nil
}

func (t *SPLToken) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	return t.transfer(ctx, from, from, to, amount)
}

func (t *SPLToken) TransferFrom(ctx context.Context, spender, from, to solana.PublicKey, amount uint64) error {
	return t.transfer(ctx, spender, from, to, amount)
}

func (t *SPLToken) transfer(ctx context.Context, authority, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%s: %w", t.cfg.Symbol, ErrZeroAmount)
	}
	w, err := t.signer(authority)
	if err != nil {
		return err
	}

	source, err := FindAssociatedTokenAddress(from, t.cfg.Mint)
	if err != nil {
		return err
	}
	dest, err := FindAssociatedTokenAddress(to, t.cfg.Mint)
	if err != nil {
		return err
	}

	var ixs []solana.Instruction
	exists, err := w.AccountExists(ctx, dest)
	if err != nil {
		return fmt.Errorf("%s: resolve destination account: %w", t.cfg.Symbol, err)
	}
	if !exists {
		ixs = append(ixs, NewCreateAssociatedTokenAccountIx(authority, dest, to, t.cfg.Mint))
	}
	ixs = append(ixs, NewTokenTransferIx(source, dest, authority, amount))

	sig, err := w.Execute(ctx, ixs)
	if err != nil {
		return fmt.Errorf("%s: transfer %d from %s to %s: %w", t.cfg.Symbol, amount, from, to, err)
	}
	t.log(sig, "transfer", from, to, amount)
	return nil
}

func (t *SPLToken) signer(account solana.PublicKey) (*wallet.Wallet, error) {
	w, ok := t.signers[account]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", t.cfg.Symbol, ErrNoSigner, account)
	}
	return w, nil
}

func (t *SPLToken) log(sig, op string, from, to solana.PublicKey, amount uint64) {
	t.cfg.Logger.WithFields(logrus.Fields{
		"token":     t.cfg.Symbol,
		"op":        op,
		"from":      from.String(),
		"to":        to.String(),
		"amount":    amount,
		"signature": sig,
	}).Info("spl token instruction confirmed")
}
