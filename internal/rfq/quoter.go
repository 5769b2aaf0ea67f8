// Package rfq implements a request-for-quote router: a quoter prices the
// swap and a market maker fills it from its own inventory.
package rfq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/jupiter"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Quoter prices an exact-input conversion in raw units.
type Quoter interface {
	QuoteExactIn(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn uint64) (uint64, error)
}

var ErrPriceImpact = errors.New("price impact too high")

// JupiterQuoter prices against the Jupiter quote API. The maker will not
// fill at a price the market only offers with more than MaxPriceImpactBps
// of impact; zero disables the check.
type JupiterQuoter struct {
	Client            *jupiter.Client
	MaxPriceImpactBps uint16
}

func (q JupiterQuoter) QuoteExactIn(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn uint64) (uint64, error) {
	out, res, err := q.Client.QuoteExactIn(ctx, inputMint.String(), outputMint.String(), amountIn)
	if err != nil {
		return 0, fmt.Errorf("jupiter quote: %w", err)
	}
	if q.MaxPriceImpactBps == 0 {
		return out, nil
	}
	impact, err := res.PriceImpactBps()
	if err != nil {
		return 0, fmt.Errorf("jupiter quote: %w", err)
	}
	if impact > uint64(q.MaxPriceImpactBps) {
		return 0, fmt.Errorf("%w: %d bps via %v, max %d", ErrPriceImpact, impact, res.Venues(), q.MaxPriceImpactBps)
	}
	return out, nil
}

type pair struct{ in, out solana.PublicKey }

// FixedRateQuoter prices from static rates expressed in whole units of the
// output asset per whole unit of the input asset.
type FixedRateQuoter struct {
	assets *asset.Registry

	mu    sync.RWMutex
	rates map[pair]decimal.Decimal
}

func NewFixedRateQuoter(assets *asset.Registry) *FixedRateQuoter {
	return &FixedRateQuoter{assets: assets, rates: make(map[pair]decimal.Decimal)}
}

// SetRate sets the in->out rate. A non-positive rate removes the pair.
func (q *FixedRateQuoter) SetRate(in, out solana.PublicKey, rate decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !rate.IsPositive() {
		delete(q.rates, pair{in, out})
		return
	}
	q.rates[pair{in, out}] = rate
}

func (q *FixedRateQuoter) QuoteExactIn(_ context.Context, inputMint, outputMint solana.PublicKey, amountIn uint64) (uint64, error) {
	q.mu.RLock()
	rate, ok := q.rates[pair{inputMint, outputMint}]
	q.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("no rate for %s -> %s", inputMint, outputMint)
	}

	in, err := q.assets.Get(inputMint)
	if err != nil {
		return 0, err
	}
	out, err := q.assets.Get(outputMint)
	if err != nil {
		return 0, err
	}

	human := asset.FromRaw(amountIn, in.Decimals()).Mul(rate)
	raw := human.Shift(int32(out.Decimals())).Truncate(0)
	bi := raw.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("quote %s overflows uint64", raw)
	}
	return bi.Uint64(), nil
}
