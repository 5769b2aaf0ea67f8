package orca

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/aman-zulfiqar/solana-treasury/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// ChainGatewayConfig configures the on-chain legacy pool router.
type ChainGatewayConfig struct {
	// Wallet signs swaps as the delegate of the payer's source account.
	Wallet *wallet.Wallet
	Pools  *PoolRegistry
	Assets *asset.Registry

	// Reserves defaults to an RPC client built from the wallet's connection.
	Reserves ReserveSource

	MaxPriceImpactBps uint16
	Now               func() time.Time
	Logger            *logrus.Logger
}

// ChainGateway swaps through a single legacy Orca pool on chain. The payer
// approves the gateway wallet as delegate on its source token account; the
// output is measured as the recipient's balance change.
type ChainGateway struct {
	cfg ChainGatewayConfig
}

func NewChainGateway(cfg ChainGatewayConfig) (*ChainGateway, error) {
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("chain gateway: wallet is nil")
	}
	if cfg.Pools == nil || cfg.Pools.PoolCount() == 0 {
		return nil, fmt.Errorf("chain gateway: no pools configured")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("chain gateway: asset registry is nil")
	}
	for _, p := range cfg.Pools.GetAllPools() {
		if !p.OnChain() {
			return nil, fmt.Errorf("chain gateway: pool %s lacks on-chain program accounts", p.Name)
		}
	}
	if cfg.Reserves == nil {
		client, err := NewClient(cfg.Wallet.RPC(), cfg.Wallet.Commitment())
		if err != nil {
			return nil, fmt.Errorf("chain gateway: %w", err)
		}
		cfg.Reserves = client
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &ChainGateway{cfg: cfg}, nil
}

func (g *ChainGateway) Address() solana.PublicKey { return g.cfg.Wallet.PublicKey() }
func (g *ChainGateway) Name() string              { return "orca-legacy" }

func (g *ChainGateway) Quote(ctx context.Context, path []solana.PublicKey, amountIn uint64) (*RouteQuote, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("%w: on-chain pools route a single hop, got %d", router.ErrNoRoute, len(path)-1)
	}
	return QuoteRoute(ctx, g.cfg.Reserves, g.cfg.Pools, path, amountIn, g.cfg.MaxPriceImpactBps)
}

func (g *ChainGateway) SwapExactIn(ctx context.Context, req router.SwapRequest) (uint64, error) {
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

	inMint, outMint := req.Path[0], req.Path[1]
	pool, err := g.cfg.Pools.FindPoolByMints(inMint, outMint)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", router.ErrNoRoute, err)
	}
	aToB, err := DetermineSwapDirection(pool, inMint)
	if err != nil {
		return 0, err
	}

	out, err := g.cfg.Assets.Get(outMint)
	if err != nil {
		return 0, err
	}
	before, err := out.BalanceOf(ctx, req.Recipient)
	if err != nil {
		return 0, fmt.Errorf("read recipient balance: %w", err)
	}

	ixs, err := g.instructions(ctx, pool, req, aToB)
	if err != nil {
		return 0, err
	}
	sig, err := g.cfg.Wallet.Execute(ctx, ixs)
	if err != nil {
		return 0, fmt.Errorf("swap transaction: %w", err)
	}

	after, err := out.BalanceOf(ctx, req.Recipient)
	if err != nil {
		return 0, fmt.Errorf("read recipient balance after %s: %w", sig, err)
	}
	if after < before {
		return 0, fmt.Errorf("recipient balance fell from %d to %d during swap %s", before, after, sig)
	}
	received := after - before
	if err := router.CheckMinOut(received, req.MinOut); err != nil {
		return 0, err
	}

	g.cfg.Logger.WithFields(logrus.Fields{
		"router":     g.Name(),
		"pool":       pool.Name,
		"amount_in":  req.AmountIn,
		"quoted_out": quote.AmountOut,
		"amount_out": received,
		"signature":  sig,
	}).Info("on-chain pool swap confirmed")

	return received, nil
}

func (g *ChainGateway) instructions(ctx context.Context, pool *LegacyPool, req router.SwapRequest, aToB bool) ([]solana.Instruction, error) {
	inMint, outMint := req.Path[0], req.Path[1]

	source, err := asset.FindAssociatedTokenAddress(req.Payer, inMint)
	if err != nil {
		return nil, err
	}
	dest, err := asset.FindAssociatedTokenAddress(req.Recipient, outMint)
	if err != nil {
		return nil, err
	}

	var ixs []solana.Instruction
	exists, err := g.cfg.Wallet.AccountExists(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination account: %w", err)
	}
	if !exists {
		ixs = append(ixs, asset.NewCreateAssociatedTokenAccountIx(g.Address(), dest, req.Recipient, outMint))
	}

	swap, err := BuildLegacySwapInstruction(pool, req.AmountIn, req.MinOut, SwapAccounts{
		TransferAuthority: g.Address(),
		Source:            source,
		Destination:       dest,
	}, aToB)
	if err != nil {
		return nil, err
	}
	return append(ixs, swap), nil
}
