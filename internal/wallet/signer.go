package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-treasury/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

type WalletConfig struct {
	// RPC is a client shared with other wallets. When nil a client for
	// RPCURL is created.
	RPC *projectrpc.Client

	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array

	DefaultCommitment   string // e.g. "confirmed"
	SkipPreflight       bool
	PreflightCommitment string // e.g. "processed"
	Simulate            bool   // simulate before sending
	ConfirmTimeout      time.Duration

	Logger *logrus.Logger
}

var errNoRPC = errors.New("wallet: no RPC client configured")

type Wallet struct {
	cfg  WalletConfig
	rpc  *projectrpc.Client
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPC == nil && cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.DefaultCommitment == "" {
		cfg.DefaultCommitment = "confirmed"
	}
	if cfg.PreflightCommitment == "" {
		cfg.PreflightCommitment = "processed"
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	priv, err := ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	rpcClient := cfg.RPC
	if rpcClient == nil {
		rpcClient = projectrpc.NewClient(projectrpc.ClientConfig{
			BaseURL:      cfg.RPCURL,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       cfg.Logger,
		})
	}

	pub := priv.PublicKey()

	return &Wallet{
		cfg:  cfg,
		rpc:  rpcClient,
		priv: priv,
		pub:  pub,
	}, nil
}

// NewSigner returns a key-only wallet that can sign messages but has no RPC
// connection. Used by clients that authenticate API requests.
func NewSigner(privateKey string) (*Wallet, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Close() error                { return nil }

// SignMessage signs an arbitrary message with the wallet key.
func (w *Wallet) SignMessage(msg []byte) (solana.Signature, error) {
	sig, err := w.priv.Sign(msg)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("wallet: sign message: %w", err)
	}
	return sig, nil
}

// AccountExists checks if an account exists on-chain (getAccountInfo != nil).
func (w *Wallet) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	var resp struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{
			"encoding":   "base64",
			"commitment": w.cfg.DefaultCommitment,
		},
	}

	if w.rpc == nil {
		return false, errNoRPC
	}
	if err := w.rpc.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return false, fmt.Errorf("getAccountInfo RPC failed: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	return resp.Result.Value != nil, nil
}

// LoadSigner is NewSigner that also accepts the path of a solana-keygen
// keypair file.
func LoadSigner(keyOrPath string) (*Wallet, error) {
	keyOrPath = strings.TrimSpace(keyOrPath)
	if strings.ContainsAny(keyOrPath, "/\\") || strings.HasSuffix(keyOrPath, ".json") {
		data, err := os.ReadFile(keyOrPath)
		if err != nil {
			return nil, fmt.Errorf("wallet: read keypair file: %w", err)
		}
		keyOrPath = string(data)
	}
	return NewSigner(keyOrPath)
}

// ParsePrivateKey accepts a base58-encoded 64-byte key or a solana-keygen
// JSON byte array. The trailing 32 bytes must be the public key of the
// leading seed.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		if raw, err = base58.Decode(s); err != nil {
			return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
		}
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, errors.New("wallet: public key half does not match the seed")
	}
	return solana.PrivateKey(derived), nil
}

// RPC exposes the wallet's RPC client for read-only helpers.
func (w *Wallet) RPC() *projectrpc.Client { return w.rpc }

// Commitment is the commitment level used for reads and confirmation.
func (w *Wallet) Commitment() string { return w.cfg.DefaultCommitment }
