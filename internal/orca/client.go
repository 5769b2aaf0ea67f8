package orca

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/rpc"
)

// Client reads Orca pool vault balances over JSON-RPC. Vault addresses are
// token accounts, so balances are read directly without ATA derivation.
type Client struct {
	rpcClient  *rpc.Client
	commitment string
}

// NewClient creates an Orca client using the project's RPC client
func NewClient(rpcClient *rpc.Client, commitment string) (*Client, error) {
	if rpcClient == nil {
		return nil, fmt.Errorf("orca client: rpc client is nil")
	}
	if commitment == "" {
		commitment = "confirmed"
	}
	return &Client{rpcClient: rpcClient, commitment: commitment}, nil
}

// FetchVaultBalances fetches token account balances for pool vaults
func (c *Client) FetchVaultBalances(
	ctx context.Context,
	pool *LegacyPool,
) (balanceA, balanceB uint64, err error) {

	balA, err := c.rpcClient.GetTokenAccountBalance(ctx, pool.VaultA.String(), c.commitment)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch vault A balance: %w", err)
	}

	balB, err := c.rpcClient.GetTokenAccountBalance(ctx, pool.VaultB.String(), c.commitment)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch vault B balance: %w", err)
	}

	return balA, balB, nil
}
