package orca

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// PoolGatewayConfig configures the in-memory pool router.
type PoolGatewayConfig struct {
	// Address is the router principal payers approve.
	Address solana.PublicKey
	Pools   *PoolRegistry
	Assets  *asset.Registry

	// MaxPriceImpactBps rejects hops that move the pool price further. Zero
	// disables the check.
	MaxPriceImpactBps uint16

	Now    func() time.Time
	Logger *logrus.Logger
}

// PoolGateway routes exact-input swaps through constant-product pools whose
// vaults are accounts of in-memory assets. Each hop is priced from the vault
// balances at call time.
type PoolGateway struct {
	cfg      PoolGatewayConfig
	reserves AssetReserves
}

func NewPoolGateway(cfg PoolGatewayConfig) (*PoolGateway, error) {
	if cfg.Address.IsZero() {
		return nil, fmt.Errorf("pool gateway: address is required")
	}
	if cfg.Pools == nil || cfg.Pools.PoolCount() == 0 {
		return nil, fmt.Errorf("pool gateway: no pools configured")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("pool gateway: asset registry is nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &PoolGateway{cfg: cfg, reserves: AssetReserves{Assets: cfg.Assets}}, nil
}

func (g *PoolGateway) Address() solana.PublicKey { return g.cfg.Address }
func (g *PoolGateway) Name() string              { return "orca-pools" }

// Quote prices amountIn along path without moving funds.
func (g *PoolGateway) Quote(ctx context.Context, path []solana.PublicKey, amountIn uint64) (*RouteQuote, error) {
	return QuoteRoute(ctx, g.reserves, g.cfg.Pools, path, amountIn, g.cfg.MaxPriceImpactBps)
}

func (g *PoolGateway) SwapExactIn(ctx context.Context, req router.SwapRequest) (uint64, error) {
	if err := router.CheckRequest(req, g.cfg.Now()); err != nil {
		return 0, err
	}

	quote, err := g.Quote(ctx, req.Path, req.AmountIn)
	if err != nil {
		return 0, err
	}
	if err := router.CheckMinOut(quote.AmountOut, req.MinOut); err != nil {
		return 0, err
	}

	legs, err := g.legs(req, quote)
	if err != nil {
		return 0, err
	}
	if err := router.Settle(ctx, legs); err != nil {
		return 0, fmt.Errorf("settle: %w", err)
	}

	g.cfg.Logger.WithFields(logrus.Fields{
		"router":     g.Name(),
		"hops":       len(quote.Hops),
		"amount_in":  req.AmountIn,
		"amount_out": quote.AmountOut,
		"recipient":  req.Recipient.String(),
	}).Info("pool swap settled")

	return quote.AmountOut, nil
}

// legs pulls the input into the first pool, passes each hop's output to the
// next pool's input vault and pays the last output to the recipient.
func (g *PoolGateway) legs(req router.SwapRequest, quote *RouteQuote) ([]router.Leg, error) {
	legs := make([]router.Leg, 0, len(quote.Hops)+1)

	for i, hop := range quote.Hops {
		pool, err := g.cfg.Pools.FindPoolByMints(hop.InputMint, hop.OutputMint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", router.ErrNoRoute, err)
		}
		aToB, err := DetermineSwapDirection(pool, hop.InputMint)
		if err != nil {
			return nil, err
		}
		vaultIn, vaultOut := pool.Vaults(aToB)

		in, err := g.cfg.Assets.Get(hop.InputMint)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			legs = append(legs, router.Leg{
				Asset:   in,
				Spender: g.cfg.Address,
				From:    req.Payer,
				To:      vaultIn,
				Amount:  hop.AmountIn,
			})
		} else {
			// The previous hop's output leg targets this vault.
			legs[len(legs)-1].To = vaultIn
		}

		out, err := g.cfg.Assets.Get(hop.OutputMint)
		if err != nil {
			return nil, err
		}
		legs = append(legs, router.Leg{
			Asset:  out,
			From:   vaultOut,
			To:     req.Recipient,
			Amount: hop.AmountOut,
		})
	}
	return legs, nil
}
