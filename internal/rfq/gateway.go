package rfq

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const bpsDenominator = 10000

type Config struct {
	// Address is the router principal payers approve.
	Address solana.PublicKey
	// Maker holds the inventory that fills swaps and receives the input.
	Maker  solana.PublicKey
	Quoter Quoter
	Assets *asset.Registry

	// SpreadBps is withheld from the quoted output by the maker.
	SpreadBps uint16

	Now    func() time.Time
	Logger *logrus.Logger
}

// Gateway fills exact-input swaps directly between the payer and a market
// maker at the quoter's price. Only the endpoints of the path are priced;
// intermediate hops are the quoter's business.
type Gateway struct {
	cfg Config
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Address.IsZero() {
		return nil, fmt.Errorf("rfq gateway: address is required")
	}
	if cfg.Maker.IsZero() {
		return nil, fmt.Errorf("rfq gateway: maker is required")
	}
	if cfg.Quoter == nil {
		return nil, fmt.Errorf("rfq gateway: quoter is nil")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("rfq gateway: asset registry is nil")
	}
	if cfg.SpreadBps >= bpsDenominator {
		return nil, fmt.Errorf("rfq gateway: spread %d bps is not below 100%%", cfg.SpreadBps)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Gateway{cfg: cfg}, nil
}

func (g *Gateway) Address() solana.PublicKey { return g.cfg.Address }
func (g *Gateway) Name() string              { return "rfq" }

// Quote returns what the maker would pay for amountIn of path[0] in
// path[last], after spread.
func (g *Gateway) Quote(ctx context.Context, path []solana.PublicKey, amountIn uint64) (uint64, error) {
	if len(path) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 assets", router.ErrInvalidPath)
	}
	gross, err := g.cfg.Quoter.QuoteExactIn(ctx, path[0], path[len(path)-1], amountIn)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", router.ErrNoRoute, err)
	}
	return applySpread(gross, g.cfg.SpreadBps), nil
}

func (g *Gateway) SwapExactIn(ctx context.Context, req router.SwapRequest) (uint64, error) {
	if err := router.CheckRequest(req, g.cfg.Now()); err != nil {
		return 0, err
	}

	out, err := g.Quote(ctx, req.Path, req.AmountIn)
	if err != nil {
		return 0, err
	}
	if out == 0 {
		return 0, fmt.Errorf("%w: quote for %d is zero", router.ErrNoRoute, req.AmountIn)
	}
	if err := router.CheckMinOut(out, req.MinOut); err != nil {
		return 0, err
	}

	in, err := g.cfg.Assets.Get(req.Path[0])
	if err != nil {
		return 0, err
	}
	dst, err := g.cfg.Assets.Get(req.Path[len(req.Path)-1])
	if err != nil {
		return 0, err
	}

	inventory, err := dst.BalanceOf(ctx, g.cfg.Maker)
	if err != nil {
		return 0, fmt.Errorf("read maker inventory: %w", err)
	}
	if inventory < out {
		return 0, fmt.Errorf("%w: maker holds %d %s, need %d", router.ErrNoRoute, inventory, dst.Symbol(), out)
	}

	err = router.Settle(ctx, []router.Leg{
		{Asset: in, Spender: g.cfg.Address, From: req.Payer, To: g.cfg.Maker, Amount: req.AmountIn},
		{Asset: dst, From: g.cfg.Maker, To: req.Recipient, Amount: out},
	})
	if err != nil {
		return 0, fmt.Errorf("settle: %w", err)
	}

	g.cfg.Logger.WithFields(logrus.Fields{
		"router":     g.Name(),
		"amount_in":  req.AmountIn,
		"amount_out": out,
		"maker":      g.cfg.Maker.String(),
		"recipient":  req.Recipient.String(),
	}).Info("rfq swap filled")

	return out, nil
}

func applySpread(amount uint64, spreadBps uint16) uint64 {
	if spreadBps == 0 {
		return amount
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(bpsDenominator-uint64(spreadBps))))
	v.Div(v, big.NewInt(bpsDenominator))
	return v.Uint64()
}
