package engine

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/jupiter"
	"github.com/aman-zulfiqar/solana-treasury/internal/orca"
	"github.com/aman-zulfiqar/solana-treasury/internal/rfq"
	"github.com/aman-zulfiqar/solana-treasury/internal/rpc"
	"github.com/aman-zulfiqar/solana-treasury/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type routeQuoter interface {
	Quote(ctx context.Context, path []solana.PublicKey, amountIn uint64) (*orca.RouteQuote, error)
}

func poolQuote(q routeQuoter) quoteFunc {
	return func(ctx context.Context, path []solana.PublicKey, amountIn uint64) (uint64, error) {
		rq, err := q.Quote(ctx, path, amountIn)
		if err != nil {
			return 0, err
		}
		return rq.AmountOut, nil
	}
}

// tokenInfo resolves symbol and decimals for mint, preferring explicit
// settings over the known token table.
func tokenInfo(mint solana.PublicKey, symbol string, decimals int) (string, uint8, error) {
	known, ok := constants.KnownTokens[mint.String()]
	if symbol == "" {
		if !ok {
			return "", 0, fmt.Errorf("unknown mint %s: set its symbol and decimals", mint)
		}
		symbol = known.Symbol
	}
	if decimals < 0 {
		if !ok {
			return "", 0, fmt.Errorf("unknown decimals for mint %s", mint)
		}
		return symbol, known.Decimals, nil
	}
	return symbol, uint8(decimals), nil
}

func parseMints(cfg *config.Config) (src, dst solana.PublicKey, err error) {
	if src, err = solana.PublicKeyFromBase58(cfg.SourceMint); err != nil {
		return src, dst, fmt.Errorf("SOURCE_MINT: %w", err)
	}
	if dst, err = solana.PublicKeyFromBase58(cfg.DestMint); err != nil {
		return src, dst, fmt.Errorf("DEST_MINT: %w", err)
	}
	return src, dst, nil
}

// principal returns the public key of privateKey, or a fresh key when the
// memory backend has none configured.
func principal(privateKey string) (solana.PublicKey, error) {
	if privateKey == "" {
		return solana.NewWallet().PublicKey(), nil
	}
	priv, err := wallet.ParsePrivateKey(privateKey)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return priv.PublicKey(), nil
}

func newQuoter(cfg *config.Config, assets *asset.Registry, src, dst solana.PublicKey) (rfq.Quoter, error) {
	if cfg.RFQFixedRate == "" {
		return rfq.JupiterQuoter{
			Client:            jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, cfg.HTTPTimeout),
			MaxPriceImpactBps: uint16(cfg.MaxPriceImpactBps),
		}, nil
	}
	rate, err := decimal.NewFromString(cfg.RFQFixedRate)
	if err != nil {
		return nil, fmt.Errorf("RFQ_FIXED_RATE: %w", err)
	}
	q := rfq.NewFixedRateQuoter(assets)
	q.SetRate(src, dst, rate)
	return q, nil
}

// buildMemory wires in-memory tokens, the pool router seeded from the pool
// config and an RFQ maker holding MakerSeed of the destination asset.
func buildMemory(cfg *config.Config, pools *orca.PoolRegistry, opts Options) (*backend, error) {
	srcMint, dstMint, err := parseMints(cfg)
	if err != nil {
		return nil, err
	}

	tokens := make(map[solana.PublicKey]*asset.Token)
	assets := asset.NewRegistry()
	addToken := func(mint solana.PublicKey, symbol string, decimals int) (*asset.Token, error) {
		if t, ok := tokens[mint]; ok {
			return t, nil
		}
		sym, dec, err := tokenInfo(mint, symbol, decimals)
		if err != nil {
			return nil, err
		}
		t := asset.NewToken(mint, sym, dec)
		tokens[mint] = t
		assets.Register(t)
		return t, nil
	}

	source, err := addToken(srcMint, cfg.SourceSymbol, cfg.SourceDecimals)
	if err != nil {
		return nil, err
	}
	dest, err := addToken(dstMint, cfg.DestSymbol, cfg.DestDecimals)
	if err != nil {
		return nil, err
	}

	for _, p := range pools.GetAllPools() {
		a, err := addToken(p.TokenMintA, "", -1)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		b, err := addToken(p.TokenMintB, "", -1)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
		if err := a.Mint(p.VaultA, p.SeedReserveA); err != nil {
			return nil, fmt.Errorf("seed pool %s: %w", p.Name, err)
		}
		if err := b.Mint(p.VaultB, p.SeedReserveB); err != nil {
			return nil, fmt.Errorf("seed pool %s: %w", p.Name, err)
		}
	}

	keys := make(map[string]solana.PublicKey, 4)
	for name, pk := range map[string]string{
		"CUSTODY_PRIVATE_KEY":  cfg.CustodyPrivateKey,
		"ROUTER_A_PRIVATE_KEY": cfg.RouterAPrivateKey,
		"ROUTER_B_PRIVATE_KEY": cfg.RouterBPrivateKey,
		"MAKER_PRIVATE_KEY":    cfg.MakerPrivateKey,
	} {
		if keys[name], err = principal(pk); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	poolGW, err := orca.NewPoolGateway(orca.PoolGatewayConfig{
		Address:           keys["ROUTER_A_PRIVATE_KEY"],
		Pools:             pools,
		Assets:            assets,
		MaxPriceImpactBps: uint16(cfg.MaxPriceImpactBps),
		Now:               opts.Now,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	quoter, err := newQuoter(cfg, assets, srcMint, dstMint)
	if err != nil {
		return nil, err
	}
	maker := keys["MAKER_PRIVATE_KEY"]
	rfqGW, err := rfq.NewGateway(rfq.Config{
		Address:   keys["ROUTER_B_PRIVATE_KEY"],
		Maker:     maker,
		Quoter:    quoter,
		Assets:    assets,
		SpreadBps: uint16(cfg.RFQSpreadBps),
		Now:       opts.Now,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := dest.Mint(maker, cfg.MakerSeed); err != nil {
		return nil, fmt.Errorf("seed maker inventory: %w", err)
	}

	return &backend{
		source:  source,
		dest:    dest,
		assets:  assets,
		custody: keys["CUSTODY_PRIVATE_KEY"],
		routerA: poolGW,
		routerB: rfqGW,
		quoteA:  poolQuote(poolGW),
		quoteB:  rfqGW.Quote,
		tokens:  tokens,
	}, nil
}

// buildSPL wires SPL tokens signed by the configured wallets, the on-chain
// legacy pool router and an RFQ maker priced by Jupiter.
func buildSPL(ctx context.Context, cfg *config.Config, pools *orca.PoolRegistry, opts Options) (*backend, error) {
	srcMint, dstMint, err := parseMints(cfg)
	if err != nil {
		return nil, err
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:           cfg.RPCUrl,
		Timeout:           cfg.HTTPTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		RequestsPerSecond: cfg.RPCRequestsPerSecond,
		Logger:            opts.Logger,
	})

	var wallets []*wallet.Wallet
	newWallet := func(name, key string) (*wallet.Wallet, error) {
		w, err := wallet.NewWallet(wallet.WalletConfig{
			RPC:               rpcClient,
			PrivateKey:        key,
			DefaultCommitment: cfg.Commitment,
			Simulate:          true,
			Logger:            opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		wallets = append(wallets, w)
		return w, nil
	}
	fail := func(err error) (*backend, error) {
		closeWallets(wallets)
		return nil, err
	}

	custody, err := newWallet("CUSTODY_PRIVATE_KEY", cfg.CustodyPrivateKey)
	if err != nil {
		return fail(err)
	}
	routerA, err := newWallet("ROUTER_A_PRIVATE_KEY", cfg.RouterAPrivateKey)
	if err != nil {
		return fail(err)
	}
	routerB, err := newWallet("ROUTER_B_PRIVATE_KEY", cfg.RouterBPrivateKey)
	if err != nil {
		return fail(err)
	}
	maker, err := newWallet("MAKER_PRIVATE_KEY", cfg.MakerPrivateKey)
	if err != nil {
		return fail(err)
	}

	newToken := func(mint solana.PublicKey, symbol string, decimals int) (*asset.SPLToken, error) {
		sym, dec, err := tokenInfo(mint, symbol, decimals)
		if err != nil {
			return nil, err
		}
		return asset.NewSPLToken(asset.SPLConfig{
			Mint:       mint,
			Symbol:     sym,
			Decimals:   dec,
			RPC:        rpcClient,
			Commitment: cfg.Commitment,
			Signers:    wallets,
			Logger:     opts.Logger,
		})
	}
	source, err := newToken(srcMint, cfg.SourceSymbol, cfg.SourceDecimals)
	if err != nil {
		return fail(err)
	}
	dest, err := newToken(dstMint, cfg.DestSymbol, cfg.DestDecimals)
	if err != nil {
		return fail(err)
	}
	assets := asset.NewRegistry(source, dest)

	chainGW, err := orca.NewChainGateway(orca.ChainGatewayConfig{
		Wallet:            routerA,
		Pools:             pools,
		Assets:            assets,
		MaxPriceImpactBps: uint16(cfg.MaxPriceImpactBps),
		Now:               opts.Now,
		Logger:            opts.Logger,
	})
	if err != nil {
		return fail(err)
	}

	quoter, err := newQuoter(cfg, assets, srcMint, dstMint)
	if err != nil {
		return fail(err)
	}
	rfqGW, err := rfq.NewGateway(rfq.Config{
		Address:   routerB.PublicKey(),
		Maker:     maker.PublicKey(),
		Quoter:    quoter,
		Assets:    assets,
		SpreadBps: uint16(cfg.RFQSpreadBps),
		Now:       opts.Now,
		Logger:    opts.Logger,
	})
	if err != nil {
		return fail(err)
	}

	// A custody wallet that cannot reach the cluster is a setup error worth
	// failing on before the API starts taking deposits.
	if _, err := custody.AccountExists(ctx, custody.PublicKey()); err != nil {
		return fail(fmt.Errorf("custody account lookup: %w", err))
	}

	return &backend{
		source:  source,
		dest:    dest,
		assets:  assets,
		custody: custody.PublicKey(),
		routerA: chainGW,
		routerB: rfqGW,
		quoteA:  poolQuote(chainGW),
		quoteB:  rfqGW.Quote,
		wallets: wallets,
	}, nil
}
