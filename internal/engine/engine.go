package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/orca"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/aman-zulfiqar/solana-treasury/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Options carries the collaborators the caller owns.
type Options struct {
	Sinks    []treasury.EventSink
	Switches treasury.Switches

	Now    func() time.Time
	Logger *logrus.Logger
}

// Engine assembles assets, routers and the ledger for one backend and is
// the entry point for every caller-facing operation. Mutating operations
// are serialized; the ledger itself stays safe under re-entrancy.
type Engine struct {
	backend string
	ledger  *treasury.Ledger
	assets  *asset.Registry
	pools   *orca.PoolRegistry

	routerA, routerB router.Gateway
	quoteA, quoteB   quoteFunc

	decision *DecisionEngine
	risk     *RiskManager

	// Memory backend only: tokens the sandbox may mint.
	tokens  map[solana.PublicKey]*asset.Token
	wallets []*wallet.Wallet

	now    func() time.Time
	logger *logrus.Logger

	mu sync.Mutex
}

// backend is what a backend builder hands back to New.
type backend struct {
	source, dest     asset.Handle
	assets           *asset.Registry
	custody          solana.PublicKey
	routerA, routerB router.Gateway
	quoteA, quoteB   quoteFunc
	tokens           map[solana.PublicKey]*asset.Token
	wallets          []*wallet.Wallet
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	owner, err := solana.PublicKeyFromBase58(cfg.OwnerAddress)
	if err != nil {
		return nil, fmt.Errorf("engine: OWNER_ADDRESS: %w", err)
	}

	pools, err := orca.NewPoolRegistry(cfg.PoolConfigPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var b *backend
	switch cfg.Backend {
	case config.BackendMemory:
		b, err = buildMemory(cfg, pools, opts)
	case config.BackendSPL:
		b, err = buildSPL(ctx, cfg, pools, opts)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	ledger, err := treasury.New(treasury.Config{
		Source:   b.source,
		Dest:     b.dest,
		RouterA:  b.routerA,
		RouterB:  b.routerB,
		Owner:    owner,
		Custody:  b.custody,
		Events:   opts.Sinks,
		Switches: opts.Switches,
		Logger:   opts.Logger,
		Now:      opts.Now,
	})
	if err != nil {
		closeWallets(b.wallets)
		return nil, fmt.Errorf("engine: %w", err)
	}

	risk, err := riskConfig(cfg, b.source.Decimals())
	if err != nil {
		closeWallets(b.wallets)
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		backend:  cfg.Backend,
		ledger:   ledger,
		assets:   b.assets,
		pools:    pools,
		routerA:  b.routerA,
		routerB:  b.routerB,
		quoteA:   b.quoteA,
		quoteB:   b.quoteB,
		decision: NewDecisionEngine(risk, b.source, b.dest, opts.Now),
		risk:     NewRiskManager(risk, opts.Now),
		tokens:   b.tokens,
		wallets:  b.wallets,
		now:      opts.Now,
		logger:   opts.Logger,
	}

	opts.Logger.WithFields(logrus.Fields{
		"backend":  cfg.Backend,
		"source":   b.source.Symbol(),
		"dest":     b.dest.Symbol(),
		"router_a": b.routerA.Name(),
		"router_b": b.routerB.Name(),
		"custody":  b.custody.String(),
		"owner":    owner.String(),
		"pools":    pools.PoolCount(),
	}).Info("treasury engine ready")

	return e, nil
}

func riskConfig(cfg *config.Config, decimals uint8) (RiskConfig, error) {
	rc := DefaultRiskConfig()
	rc.DefaultSlippageBps = uint16(cfg.DefaultSlippageBps)
	rc.MaxSlippageBps = uint16(cfg.MaxSlippageBps)

	limits := []struct {
		name string
		val  string
		dst  *uint64
	}{
		{"RISK_MAX_SWAP_AMOUNT", cfg.MaxSwapAmount, &rc.MaxSwapAmount},
		{"RISK_DAILY_SWAP_LIMIT", cfg.DailySwapLimit, &rc.DailyLimit},
	}
	for _, l := range limits {
		if l.val == "" {
			continue
		}
		d, err := decimal.NewFromString(l.val)
		if err != nil {
			return rc, fmt.Errorf("%s: %w", l.name, err)
		}
		if *l.dst, err = asset.ToRaw(d, decimals); err != nil {
			return rc, fmt.Errorf("%s: %w", l.name, err)
		}
	}
	return rc, nil
}

func (e *Engine) Ledger() *treasury.Ledger { return e.ledger }
func (e *Engine) Assets() *asset.Registry  { return e.assets }
func (e *Engine) Backend() string          { return e.backend }

// Deposit credits amount (whole source units) pulled from caller.
func (e *Engine) Deposit(ctx context.Context, caller solana.PublicKey, amount decimal.Decimal) (uint64, error) {
	raw, err := e.toRaw(e.ledger.SourceAsset(), amount)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ledger.Deposit(ctx, caller, raw); err != nil {
		return 0, err
	}
	return raw, nil
}

// Swap resolves intent into a ledger swap, checks risk limits and runs it.
func (e *Engine) Swap(ctx context.Context, caller solana.PublicKey, intent SwapIntent) (*SwapResult, error) {
	start := e.now()

	gw, quote, err := e.selectRouter(intent.Router)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.decision.BuildRequest(&intent)
	if err != nil {
		return nil, err
	}
	// Refuse before quoting: a quote is an external call.
	if err := e.ledger.CheckSwap(ctx, req); err != nil {
		return nil, e.ledger.RefuseSwap(ctx, caller, req, err)
	}
	if err := e.risk.CheckSwap(req.AmountIn); err != nil {
		return nil, err
	}
	quoted, err := e.decision.PriceRequest(ctx, &req, &intent, quote)
	if err != nil {
		return nil, err
	}

	out, err := e.ledger.Swap(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	e.risk.RecordSwap(req.AmountIn)

	return &SwapResult{
		Router:      gw.Name(),
		AmountIn:    req.AmountIn,
		QuotedOut:   quoted,
		MinOut:      req.MinOut,
		AmountOut:   out,
		AmountOutUI: asset.FromRaw(out, e.ledger.DestAsset().Decimals()),
		Deadline:    req.Deadline,
		Duration:    e.now().Sub(start),
	}, nil
}

func (e *Engine) WithdrawAll(ctx context.Context, caller solana.PublicKey) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.WithdrawAll(ctx, caller)
}

// Quote prices amount (whole source units) source -> dest on one router.
func (e *Engine) Quote(ctx context.Context, sel treasury.RouterSelector, amount decimal.Decimal) (*QuoteResult, error) {
	gw, quote, err := e.selectRouter(sel)
	if err != nil {
		return nil, err
	}
	raw, err := e.toRaw(e.ledger.SourceAsset(), amount)
	if err != nil {
		return nil, err
	}
	if raw == 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidAmount)
	}

	path := []solana.PublicKey{e.ledger.SourceAsset().Address(), e.ledger.DestAsset().Address()}
	out, err := quote(ctx, path, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteFailed, err)
	}
	return &QuoteResult{
		Router:      gw.Name(),
		AmountIn:    raw,
		AmountOut:   out,
		AmountOutUI: asset.FromRaw(out, e.ledger.DestAsset().Decimals()),
		QuotedAt:    e.now().UTC(),
	}, nil
}

func (e *Engine) State() treasury.State { return e.ledger.Snapshot() }

func (e *Engine) Audit(ctx context.Context) (*treasury.AuditReport, error) {
	return e.ledger.Audit(ctx)
}

func (e *Engine) Info() *Info {
	src, dst := e.ledger.SourceAsset(), e.ledger.DestAsset()
	pools := e.pools.GetAllPools()
	names := make([]string, len(pools))
	for i, p := range pools {
		names[i] = p.Name
	}
	return &Info{
		Backend: e.backend,
		Source:  TokenInfo{Mint: src.Address().String(), Symbol: src.Symbol(), Decimals: src.Decimals()},
		Dest:    TokenInfo{Mint: dst.Address().String(), Symbol: dst.Symbol(), Decimals: dst.Decimals()},
		RouterA: RouterInfo{Name: e.routerA.Name(), Address: e.routerA.Address().String()},
		RouterB: RouterInfo{Name: e.routerB.Name(), Address: e.routerB.Address().String()},
		Pools:   names,
		Risk:    e.risk.Status(),
	}
}

func (e *Engine) selectRouter(sel treasury.RouterSelector) (router.Gateway, quoteFunc, error) {
	switch sel {
	case treasury.RouterA:
		return e.routerA, e.quoteA, nil
	case treasury.RouterB:
		return e.routerB, e.quoteB, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", treasury.ErrInvalidRouterSelector, sel)
	}
}

func (e *Engine) toRaw(h asset.Handle, amount decimal.Decimal) (uint64, error) {
	raw, err := asset.ToRaw(amount, h.Decimals())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return raw, nil
}

// Close cleans up all resources
func (e *Engine) Close() error {
	return closeWallets(e.wallets)
}

func closeWallets(ws []*wallet.Wallet) error {
	var errs []error
	for _, w := range ws {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("wallet %s close: %w", w.Address(), err))
		}
	}
	return errors.Join(errs...)
}
