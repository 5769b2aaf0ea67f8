package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-treasury/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SendOptions configures transaction sending behavior
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

// DefaultSendOptions returns recommended send settings
func DefaultSendOptions() SendOptions {
	maxRetries := 3
	return SendOptions{
		PreflightCommitment: "processed",
		MaxRetries:          &maxRetries,
	}
}

// Execute builds, optionally simulates, signs, sends and confirms a
// transaction paid and signed by this wallet.
func (w *Wallet) Execute(ctx context.Context, instructions []solana.Instruction) (string, error) {
	if w.rpc == nil {
		return "", errNoRPC
	}

	blockhash, err := w.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.pub))
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	encoded, err := encodeTx(tx)
	if err != nil {
		return "", err
	}

	if w.cfg.Simulate {
		if err := w.simulate(ctx, encoded); err != nil {
			return "", err
		}
	}

	opts := DefaultSendOptions()
	opts.SkipPreflight = w.cfg.SkipPreflight
	opts.PreflightCommitment = w.cfg.PreflightCommitment
	sig, err := w.send(ctx, encoded, opts)
	if err != nil {
		return "", err
	}

	if err := w.confirm(ctx, sig, w.cfg.DefaultCommitment, w.cfg.ConfirmTimeout); err != nil {
		return sig, err
	}

	w.cfg.Logger.WithFields(logrus.Fields{
		"signature": sig,
		"signer":    w.pub.String(),
	}).Debug("transaction confirmed")

	return sig, nil
}

func encodeTx(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (w *Wallet) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	var resp struct {
		Result struct {
			Value struct {
				Blockhash string `json:"blockhash"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{map[string]any{"commitment": "processed"}}
	if err := w.rpc.Call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	if resp.Error != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash error: %s", resp.Error.Message)
	}

	hash, err := solana.HashFromBase58(resp.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash format: %w", err)
	}
	return hash, nil
}

func (w *Wallet) simulate(ctx context.Context, encoded string) error {
	var resp struct {
		Result struct {
			Value struct {
				Err  any      `json:"err"`
				Logs []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{encoded, map[string]any{"encoding": "base64", "commitment": "processed"}}
	if err := w.rpc.Call(ctx, "simulateTransaction", params, &resp); err != nil {
		return fmt.Errorf("simulateTransaction failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("simulateTransaction error: %s", resp.Error.Message)
	}
	if resp.Result.Value.Err != nil {
		w.cfg.Logger.WithField("logs", resp.Result.Value.Logs).Debug("simulation logs")
		return fmt.Errorf("simulation failed: %v", resp.Result.Value.Err)
	}
	return nil
}

func (w *Wallet) send(ctx context.Context, encoded string, opts SendOptions) (string, error) {
	cfg := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       opts.SkipPreflight,
		"preflightCommitment": opts.PreflightCommitment,
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}

	var resp struct {
		Result string               `json:"result"`
		Error  *projectrpc.RPCError `json:"error"`
	}
	if err := w.rpc.Call(ctx, "sendTransaction", []any{encoded, cfg}, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction error: code=%d, message=%s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// confirm polls getSignatureStatuses with exponential backoff until the
// commitment is reached, the transaction fails or the timeout elapses.
func (w *Wallet) confirm(ctx context.Context, signature, commitment string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	const maxBackoff = 4 * time.Second

	for time.Now().Before(deadline) {
		done, err := w.signatureReached(ctx, signature, commitment)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return fmt.Errorf("transaction confirmation timeout after %v", timeout)
}

func (w *Wallet) signatureReached(ctx context.Context, signature, commitment string) (bool, error) {
	var resp struct {
		Result struct {
			Value []*struct {
				Err                any    `json:"err"`
				ConfirmationStatus string `json:"confirmationStatus"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{[]string{signature}, map[string]any{"searchTransactionHistory": true}}
	if err := w.rpc.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return false, fmt.Errorf("failed to check signature: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getSignatureStatuses error: %s", resp.Error.Message)
	}
	if len(resp.Result.Value) == 0 || resp.Result.Value[0] == nil {
		return false, nil
	}

	status := resp.Result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed: %v", status.Err)
	}

	switch commitment {
	case "finalized":
		return status.ConfirmationStatus == "finalized", nil
	case "confirmed":
		return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	default:
		return status.ConfirmationStatus != "", nil
	}
}
