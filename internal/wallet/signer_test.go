package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-treasury/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	fromB58, err := ParsePrivateKey("  " + key.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromB58.PublicKey())

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	arr, err := json.Marshal(ints)
	require.NoError(t, err)
	fromJSON, err := ParsePrivateKey(string(arr))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromJSON.PublicKey())

	for _, bad := range []string{"", "0OIl", "[1,2,3]", "[256" + strings.Repeat(",0", 63) + "]", key.PublicKey().String()} {
		_, err := ParsePrivateKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignerSignsVerifiably(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewSigner(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.Equal(t, key.PublicKey().String(), w.Address())

	msg := []byte("POST\n/v1/deposits\n1700000000\n{}")
	sig, err := w.SignMessage(msg)
	require.NoError(t, err)
	assert.True(t, sig.Verify(w.PublicKey(), msg))
	assert.False(t, sig.Verify(w.PublicKey(), append(msg, '!')))

	_, err = w.AccountExists(context.Background(), w.PublicKey())
	assert.ErrorIs(t, err, errNoRPC)
}

func TestNewWalletRequiresRPCAndKey(t *testing.T) {
	_, err := NewWallet(WalletConfig{PrivateKey: solana.NewWallet().PrivateKey.String()})
	assert.Error(t, err)
	_, err = NewWallet(WalletConfig{RPCURL: "http://localhost:8899"})
	assert.Error(t, err)
}

func TestAccountExists(t *testing.T) {
	missing := solana.NewWallet().PublicKey()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAccountInfo", req.Method)
		if string(req.Params[0]) == `"`+missing.String()+`"` {
			_, _ = w.Write([]byte(`{"result":{"value":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"value":{"lamports":1}}}`))
	}))
	defer srv.Close()

	w, err := NewWallet(WalletConfig{
		RPCURL:       srv.URL,
		PrivateKey:   solana.NewWallet().PrivateKey.String(),
		Timeout:      time.Second,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", w.Commitment())

	ok, err := w.AccountExists(context.Background(), w.PublicKey())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.AccountExists(context.Background(), missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWallet_SharedRPC(t *testing.T) {
	shared := projectrpc.NewClient(projectrpc.ClientConfig{BaseURL: "http://localhost:8899"})
	a, err := NewWallet(WalletConfig{RPC: shared, PrivateKey: solana.NewWallet().PrivateKey.String()})
	require.NoError(t, err)
	b, err := NewWallet(WalletConfig{RPC: shared, PrivateKey: solana.NewWallet().PrivateKey.String()})
	require.NoError(t, err)
	assert.Same(t, shared, a.RPC())
	assert.Same(t, a.RPC(), b.RPC())
}

func TestParsePrivateKey_RejectsMismatchedHalves(t *testing.T) {
	a := solana.NewWallet().PrivateKey
	b := solana.NewWallet().PrivateKey
	mixed := append(append([]byte{}, a[:32]...), b[32:]...)

	_, err := ParsePrivateKey(solana.PrivateKey(mixed).String())
	assert.ErrorContains(t, err, "does not match")
}

func TestLoadSigner_KeypairFile(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	w, err := LoadSigner(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	w, err = LoadSigner(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	_, err = LoadSigner(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
