package orca

import (
	"github.com/gagliardetto/solana-go"
)

// Legacy Orca constant-product pool program ID
const (
	LegacyProgramID = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
)

// SwapQuote contains quote details for one hop
type SwapQuote struct {
	PoolName    string
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    uint64  // Raw input amount (with decimals)
	AmountOut   uint64  // Expected output (with decimals)
	FeeBps      uint16  // Fee in basis points
	PriceImpact float64 // Price impact percentage (0.01 = 1%)
	ReserveIn   uint64  // Input reserve before swap
	ReserveOut  uint64  // Output reserve before swap
}

// RouteQuote chains hop quotes along a path.
type RouteQuote struct {
	Hops      []SwapQuote
	AmountIn  uint64
	AmountOut uint64
}

// PoolState represents current reserves of a pool
type PoolState struct {
	Pool      *LegacyPool
	ReserveA  uint64 // Current balance in vault A
	ReserveB  uint64 // Current balance in vault B
	Timestamp int64  // When fetched
}
