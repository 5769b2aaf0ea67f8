package orca

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
)

// ReserveSource reads the current vault balances of a pool.
type ReserveSource interface {
	FetchVaultBalances(ctx context.Context, pool *LegacyPool) (balanceA, balanceB uint64, err error)
}

// AssetReserves reads vault balances through asset handles, treating each
// vault as an account of its mint.
type AssetReserves struct {
	Assets *asset.Registry
}

func (r AssetReserves) FetchVaultBalances(ctx context.Context, pool *LegacyPool) (uint64, uint64, error) {
	a, err := r.Assets.Get(pool.TokenMintA)
	if err != nil {
		return 0, 0, err
	}
	b, err := r.Assets.Get(pool.TokenMintB)
	if err != nil {
		return 0, 0, err
	}

	balA, err := a.BalanceOf(ctx, pool.VaultA)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch vault A balance: %w", err)
	}
	balB, err := b.BalanceOf(ctx, pool.VaultB)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch vault B balance: %w", err)
	}
	return balA, balB, nil
}

// RefreshPoolState fetches current vault balances for a pool
func RefreshPoolState(
	ctx context.Context,
	src ReserveSource,
	pool *LegacyPool,
) (*PoolState, error) {

	reserveA, reserveB, err := src.FetchVaultBalances(ctx, pool)
	if err != nil {
		return nil, err
	}

	return &PoolState{
		Pool:      pool,
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		Timestamp: time.Now().Unix(),
	}, nil
}

// GetReserves returns reserves in the correct order for a swap direction
func (ps *PoolState) GetReserves(aToB bool) (reserveIn, reserveOut uint64) {
	if aToB {
		return ps.ReserveA, ps.ReserveB
	}
	return ps.ReserveB, ps.ReserveA
}

// apply moves the state past hop: the full input, fee included, stays in
// the pool and the output leaves it.
func (ps *PoolState) apply(hop SwapQuote) {
	if hop.InputMint.Equals(ps.Pool.TokenMintA) {
		ps.ReserveA += hop.AmountIn
		ps.ReserveB -= hop.AmountOut
		return
	}
	ps.ReserveB += hop.AmountIn
	ps.ReserveA -= hop.AmountOut
}

// Vaults returns the vault accounts in swap direction order.
func (p *LegacyPool) Vaults(aToB bool) (vaultIn, vaultOut solana.PublicKey) {
	if aToB {
		return p.VaultA, p.VaultB
	}
	return p.VaultB, p.VaultA
}

// QuoteHop prices amountIn of inputMint against the pool's current state.
func (ps *PoolState) QuoteHop(inputMint solana.PublicKey, amountIn uint64) (SwapQuote, error) {
	aToB, err := DetermineSwapDirection(ps.Pool, inputMint)
	if err != nil {
		return SwapQuote{}, err
	}
	reserveIn, reserveOut := ps.GetReserves(aToB)

	out, impact, err := CalculateLegacySwapOutput(
		amountIn, reserveIn, reserveOut,
		ps.Pool.FeeNumerator, ps.Pool.FeeDenominator,
	)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("pool %s: %w", ps.Pool.Name, err)
	}

	outputMint := ps.Pool.TokenMintB
	if !aToB {
		outputMint = ps.Pool.TokenMintA
	}

	return SwapQuote{
		PoolName:    ps.Pool.Name,
		InputMint:   inputMint,
		OutputMint:  outputMint,
		AmountIn:    amountIn,
		AmountOut:   out,
		FeeBps:      CalculateFeeBps(ps.Pool.FeeNumerator, ps.Pool.FeeDenominator),
		PriceImpact: impact,
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
	}, nil
}

// QuoteRoute prices amountIn along path, one pool per hop, feeding each hop's
// output into the next. Hops fail with router.ErrNoRoute when no pool holds
// the pair or the pool cannot price the amount.
func QuoteRoute(
	ctx context.Context,
	src ReserveSource,
	pools *PoolRegistry,
	path []solana.PublicKey,
	amountIn uint64,
	maxImpactBps uint16,
) (*RouteQuote, error) {

	if len(path) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 assets", router.ErrInvalidPath)
	}

	quote := &RouteQuote{AmountIn: amountIn}
	amount := amountIn
	// A pool visited twice is priced against the reserves the earlier hop
	// leaves behind.
	states := make(map[string]*PoolState)
	for i := 0; i+1 < len(path); i++ {
		pool, err := pools.FindPoolByMints(path[i], path[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: hop %d: %v", router.ErrNoRoute, i, err)
		}
		state, ok := states[pool.Name]
		if !ok {
			if state, err = RefreshPoolState(ctx, src, pool); err != nil {
				return nil, fmt.Errorf("hop %d (%s): %w", i, pool.Name, err)
			}
			states[pool.Name] = state
		}
		hop, err := state.QuoteHop(path[i], amount)
		if err != nil {
			return nil, fmt.Errorf("%w: hop %d: %v", router.ErrNoRoute, i, err)
		}
		if hop.AmountOut == 0 {
			return nil, fmt.Errorf("%w: hop %d (%s) yields nothing for %d", router.ErrNoRoute, i, pool.Name, amount)
		}
		if err := ValidatePriceImpact(hop.PriceImpact, maxImpactBps); err != nil {
			return nil, fmt.Errorf("hop %d (%s): %w", i, pool.Name, err)
		}
		state.apply(hop)
		quote.Hops = append(quote.Hops, hop)
		amount = hop.AmountOut
	}
	quote.AmountOut = amount
	return quote, nil
}
