package router

import (
	"context"
	"testing"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey() solana.PublicKey { return solana.NewWallet().PublicKey() }

func TestSettle_AllLegs(t *testing.T) {
	ctx := context.Background()
	tokA := asset.NewToken(newKey(), "A", 6)
	tokB := asset.NewToken(newKey(), "B", 6)
	alice, bob, spender := newKey(), newKey(), newKey()

	require.NoError(t, tokA.Mint(alice, 100))
	require.NoError(t, tokB.Mint(bob, 50))
	require.NoError(t, tokA.Approve(ctx, alice, spender, 40))

	err := Settle(ctx, []Leg{
		{Asset: tokA, Spender: spender, From: alice, To: bob, Amount: 40},
		{Asset: tokB, From: bob, To: alice, Amount: 50},
	})
	require.NoError(t, err)

	bal, _ := tokA.BalanceOf(ctx, alice)
	assert.Equal(t, uint64(60), bal)
	bal, _ = tokA.BalanceOf(ctx, bob)
	assert.Equal(t, uint64(40), bal)
	bal, _ = tokB.BalanceOf(ctx, alice)
	assert.Equal(t, uint64(50), bal)
	allowance, _ := tokA.Allowance(ctx, alice, spender)
	assert.Zero(t, allowance)
}

func TestSettle_UnwindsCompletedLegs(t *testing.T) {
	ctx := context.Background()
	tokA := asset.NewToken(newKey(), "A", 6)
	tokB := asset.NewToken(newKey(), "B", 6)
	alice, bob, carol := newKey(), newKey(), newKey()

	require.NoError(t, tokA.Mint(alice, 100))

	err := Settle(ctx, []Leg{
		{Asset: tokA, From: alice, To: bob, Amount: 40},
		{Asset: tokA, From: bob, To: carol, Amount: 40},
		{Asset: tokB, From: carol, To: alice, Amount: 10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, asset.ErrInsufficientFunds)

	for _, acct := range []solana.PublicKey{bob, carol} {
		bal, _ := tokA.BalanceOf(ctx, acct)
		assert.Zero(t, bal)
	}
	bal, _ := tokA.BalanceOf(ctx, alice)
	assert.Equal(t, uint64(100), bal)
}
