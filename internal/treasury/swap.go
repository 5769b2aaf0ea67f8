package treasury

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
)

// RouterSelector picks one of the ledger's two routers.
type RouterSelector uint8

const (
	RouterA RouterSelector = 0
	RouterB RouterSelector = 1
)

// ParseRouterSelector accepts "0", "1", "a" or "b" (any case).
func ParseRouterSelector(s string) (RouterSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return RouterA, nil
	case "b":
		return RouterB, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRouterSelector, s)
	}
	return RouterSelector(n), nil
}

type SwapRequest struct {
	Path     []solana.PublicKey
	AmountIn uint64
	MinOut   uint64
	Router   RouterSelector
	// Deadline is enforced by the router, not the ledger.
	Deadline time.Time
}

// Swap converts AmountIn of the source balance into the destination asset
// through the selected router and credits exactly the output the router
// reports. The source balance is debited before the router is called and
// restored if the router fails.
func (l *Ledger) Swap(ctx context.Context, caller solana.PublicKey, req SwapRequest) (amountOut uint64, err error) {
	var gw router.Gateway
	defer func() {
		in := eventInput{
			kind:      models.EventSwap,
			caller:    caller.String(),
			in:        l.source,
			out:       l.dest,
			amountIn:  req.AmountIn,
			amountOut: amountOut,
			err:       err,
		}
		if gw != nil {
			in.router = gw.Name()
		}
		l.emit(ctx, in)
	}()

	if err := l.CheckSwap(ctx, req); err != nil {
		return 0, err
	}
	gw, _ = l.selectRouter(req.Router)

	cp := l.begin()
	if err := cp.debit(sourceAccount, req.AmountIn); err != nil {
		return 0, err
	}

	out, err := l.route(ctx, gw, req)
	if err != nil {
		cp.revert()
		return 0, fmt.Errorf("%w: %s: %w", ErrSwapFailed, gw.Name(), err)
	}

	if err := cp.commit(entry{destAccount, out}); err != nil {
		// The router already moved the funds, so the debit stands; the
		// uncredited output remains visible to Audit as custody surplus.
		_ = cp.commit()
		l.logger.WithError(err).WithField("amount_out", out).Error("swap output could not be credited")
		return 0, fmt.Errorf("%w: %s: %w", ErrSwapFailed, gw.Name(), err)
	}
	return out, nil
}

// CheckSwap runs the checks Swap makes before touching any balance or
// router: the pause switch, the path direction, the source balance and the
// router selector. It has no side effects, so callers can refuse a request
// before pricing it.
func (l *Ledger) CheckSwap(ctx context.Context, req SwapRequest) error {
	if err := l.paused(ctx, OpSwap); err != nil {
		return err
	}
	if err := l.CheckDirection(req.Path); err != nil {
		return err
	}
	if bal := l.SourceBalance(); req.AmountIn > bal {
		return fmt.Errorf("%w: source balance %d, requested %d", ErrInsufficientBalance, bal, req.AmountIn)
	}
	_, err := l.selectRouter(req.Router)
	return err
}

// RefuseSwap journals a swap turned down before it reached Swap and returns
// reason unchanged.
func (l *Ledger) RefuseSwap(ctx context.Context, caller solana.PublicKey, req SwapRequest, reason error) error {
	in := eventInput{
		kind:     models.EventSwap,
		caller:   caller.String(),
		in:       l.source,
		out:      l.dest,
		amountIn: req.AmountIn,
		err:      reason,
	}
	if gw, err := l.selectRouter(req.Router); err == nil {
		in.router = gw.Name()
	}
	l.emit(ctx, in)
	return reason
}

// CheckDirection reports a DirectionError unless path starts at the source
// asset and ends at the destination asset.
func (l *Ledger) CheckDirection(path []solana.PublicKey) error {
	if len(path) == 0 || !path[0].Equals(l.source.Address()) {
		e := &DirectionError{Side: SideSource, Want: l.source.Address()}
		if len(path) > 0 {
			e.Got = path[0]
		}
		return e
	}
	if last := path[len(path)-1]; !last.Equals(l.dest.Address()) {
		return &DirectionError{Side: SideDestination, Want: l.dest.Address(), Got: last}
	}
	return nil
}

func (l *Ledger) selectRouter(sel RouterSelector) (router.Gateway, error) {
	switch sel {
	case RouterA:
		return l.routerA, nil
	case RouterB:
		return l.routerB, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRouterSelector, sel)
	}
}

// route grants gw an allowance for exactly the input, runs the swap with
// custody as payer and recipient, and clears any allowance left over.
func (l *Ledger) route(ctx context.Context, gw router.Gateway, req SwapRequest) (uint64, error) {
	if err := l.source.Approve(ctx, l.custody, gw.Address(), req.AmountIn); err != nil {
		return 0, fmt.Errorf("approve router: %w", err)
	}

	out, err := gw.SwapExactIn(ctx, router.SwapRequest{
		Path:      req.Path,
		AmountIn:  req.AmountIn,
		MinOut:    req.MinOut,
		Payer:     l.custody,
		Recipient: l.custody,
		Deadline:  req.Deadline,
	})

	if rerr := l.revokeRouter(context.WithoutCancel(ctx), gw); rerr != nil {
		l.logger.WithError(rerr).WithField("router", gw.Name()).Warn("failed to clear router allowance")
	}
	if err != nil {
		return 0, err
	}
	return out, nil
}

func (l *Ledger) revokeRouter(ctx context.Context, gw router.Gateway) error {
	left, err := l.source.Allowance(ctx, l.custody, gw.Address())
	if err != nil {
		return err
	}
	if left == 0 {
		return nil
	}
	return l.source.Approve(ctx, l.custody, gw.Address(), 0)
}
