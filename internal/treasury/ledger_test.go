package treasury

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartingValues(t *testing.T) {
	f := setup(t)
	l := f.ledger

	assert.True(t, l.SourceAsset().Address().Equals(f.src.Address()))
	assert.True(t, l.DestAsset().Address().Equals(f.dst.Address()))
	assert.True(t, l.RouterA().Equals(f.routerA.addr))
	assert.True(t, l.RouterB().Equals(f.routerB.addr))
	assert.True(t, l.Owner().Equals(f.owner))
	assert.True(t, l.Custody().Equals(f.custody))
	assert.Zero(t, l.SourceBalance())
	assert.Zero(t, l.DestBalance())

	state := l.Snapshot()
	assert.True(t, state.RouterA.Equals(f.routerA.addr))
	assert.Zero(t, state.SourceBalance)
}

func TestNew_InvalidConfig(t *testing.T) {
	f := setup(t)
	valid := Config{
		Source:  f.src,
		Dest:    f.dst,
		RouterA: f.routerA,
		RouterB: f.routerB,
		Owner:   f.owner,
		Custody: f.custody,
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing source", func(c *Config) { c.Source = nil }},
		{"same assets", func(c *Config) { c.Dest = f.src }},
		{"missing router", func(c *Config) { c.RouterB = nil }},
		{"same routers", func(c *Config) { c.RouterB = f.routerA }},
		{"missing owner", func(c *Config) { c.Owner = solana.PublicKey{} }},
		{"missing custody", func(c *Config) { c.Custody = solana.PublicKey{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(valid)
	assert.NoError(t, err)
}

func TestAccessGuard(t *testing.T) {
	owner := newKey()
	g := NewAccessGuard(owner)
	assert.True(t, g.IsOwner(owner))
	assert.False(t, g.IsOwner(newKey()))
	assert.False(t, NewAccessGuard(solana.PublicKey{}).IsOwner(solana.PublicKey{}))
}

func TestDeposit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.deposit(t, 1000)
	assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
	assert.Equal(t, uint64(1000), balanceOf(t, f.src, f.custody))
	assert.Equal(t, uint64(999_000), balanceOf(t, f.src, f.depositor))

	f.deposit(t, 250)
	assert.Equal(t, uint64(1250), f.ledger.SourceBalance())

	allowance, _ := f.src.Allowance(ctx, f.depositor, f.custody)
	assert.Zero(t, allowance)
}

func TestDeposit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		caller  func(f *fixture) solana.PublicKey
		approve uint64
		amount  uint64
		cause   error
	}{
		{"zero amount", func(f *fixture) solana.PublicKey { return f.depositor }, 10, 0, nil},
		{"no allowance", func(f *fixture) solana.PublicKey { return f.depositor }, 0, 10, asset.ErrInsufficientAllowance},
		{"short allowance", func(f *fixture) solana.PublicKey { return f.depositor }, 9, 10, asset.ErrInsufficientAllowance},
		{"no funds", func(f *fixture) solana.PublicKey { return newKey() }, 10, 10, asset.ErrInsufficientFunds},
		{"custody itself", func(f *fixture) solana.PublicKey { return f.custody }, 10, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			caller := tt.caller(f)
			require.NoError(t, f.src.Approve(ctx, caller, f.custody, tt.approve))

			err := f.ledger.Deposit(ctx, caller, tt.amount)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransferFailed)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			assert.Zero(t, f.ledger.SourceBalance())
			assert.Zero(t, balanceOf(t, f.src, f.custody))
		})
	}
}

func TestScenario_DepositSwapWithdraw(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.deposit(t, 1000)
	require.Equal(t, uint64(1000), f.ledger.SourceBalance())

	out, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), out)
	assert.Zero(t, f.ledger.SourceBalance())
	assert.Equal(t, uint64(1800), f.ledger.DestBalance())
	assert.Equal(t, 1, f.routerA.callCount())
	assert.Zero(t, f.routerB.callCount())

	before := balanceOf(t, f.dst, f.owner)
	withdrawn, err := f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), withdrawn)
	assert.Equal(t, before+1800, balanceOf(t, f.dst, f.owner))
	assert.Zero(t, f.ledger.DestBalance())
	assert.Zero(t, balanceOf(t, f.dst, f.custody))

	report, err := f.ledger.Audit(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestScenario_ReversedPath(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)

	req := f.swapRequest(1000, RouterA)
	req.Path = []solana.PublicKey{f.dst.Address(), f.src.Address()}

	_, err := f.ledger.Swap(ctx, f.depositor, req)
	require.ErrorIs(t, err, ErrInvalidSwapDirection)

	var dirErr *DirectionError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, SideSource, dirErr.Side)
	assert.Zero(t, f.routerA.callCount())
	assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
}

func TestSwap_DirectionPolicy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	other := newKey()

	tests := []struct {
		name string
		path []solana.PublicKey
		side string
	}{
		{"empty", nil, SideSource},
		{"wrong source", []solana.PublicKey{other, f.dst.Address()}, SideSource},
		{"wrong destination", []solana.PublicKey{f.src.Address(), other}, SideDestination},
		{"multi hop wrong end", []solana.PublicKey{f.src.Address(), f.dst.Address(), other}, SideDestination},
		{"single element", []solana.PublicKey{f.src.Address()}, SideDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.swapRequest(100, RouterA)
			req.Path = tt.path

			_, err := f.ledger.Swap(ctx, f.depositor, req)
			var dirErr *DirectionError
			require.ErrorAs(t, err, &dirErr)
			assert.ErrorIs(t, err, ErrInvalidSwapDirection)
			assert.Equal(t, tt.side, dirErr.Side)
			assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
			assert.Zero(t, f.ledger.DestBalance())
		})
	}
	assert.Zero(t, f.routerA.callCount())
}

func TestSwap_IntermediateHopsAllowed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)

	req := f.swapRequest(400, RouterA)
	req.Path = []solana.PublicKey{f.src.Address(), newKey(), f.dst.Address()}

	out, err := f.ledger.Swap(ctx, f.depositor, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), out)
	assert.Len(t, f.routerA.last.Path, 3)
}

func TestSwap_InsufficientBalance(t *testing.T) {
	f := setup(t)
	f.deposit(t, 1000)

	_, err := f.ledger.Swap(context.Background(), f.depositor, f.swapRequest(1001, RouterA))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
	assert.Zero(t, f.routerA.callCount())
}

func TestSwap_InvalidRouterSelector(t *testing.T) {
	f := setup(t)
	f.deposit(t, 1000)

	for _, sel := range []RouterSelector{2, 7, 255} {
		_, err := f.ledger.Swap(context.Background(), f.depositor, f.swapRequest(500, sel))
		assert.ErrorIs(t, err, ErrInvalidRouterSelector)
	}
	assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
	assert.Zero(t, f.ledger.DestBalance())
	assert.Zero(t, f.routerA.callCount()+f.routerB.callCount())
}

func TestSwap_RouterB(t *testing.T) {
	f := setup(t)
	f.deposit(t, 1000)

	out, err := f.ledger.Swap(context.Background(), f.depositor, f.swapRequest(600, RouterB))
	require.NoError(t, err)
	assert.Equal(t, uint64(1700), out)
	assert.Equal(t, uint64(400), f.ledger.SourceBalance())
	assert.Equal(t, uint64(1700), f.ledger.DestBalance())
	assert.Equal(t, 1, f.routerB.callCount())
	assert.True(t, f.routerB.last.Payer.Equals(f.custody))
	assert.True(t, f.routerB.last.Recipient.Equals(f.custody))
}

func TestSwap_AccountingMatchesReportedOutput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 10_000)

	var wantDest uint64
	wantSource := uint64(10_000)
	for _, tc := range []struct{ in, out uint64 }{{1, 1}, {999, 500}, {3000, 12345}, {6000, 0}} {
		f.routerA.out = tc.out
		out, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(tc.in, RouterA))
		require.NoError(t, err)
		assert.Equal(t, tc.out, out)

		wantSource -= tc.in
		wantDest += tc.out
		assert.Equal(t, wantSource, f.ledger.SourceBalance())
		assert.Equal(t, wantDest, f.ledger.DestBalance())
	}
}

func TestSwap_RouterFailureRestoresBalance(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture, req *SwapRequest)
		cause   error
	}{
		{"router error", func(f *fixture, _ *SwapRequest) { f.routerA.err = router.ErrNoRoute }, router.ErrNoRoute},
		{"slippage", func(_ *fixture, req *SwapRequest) { req.MinOut = 1801 }, router.ErrSlippage},
		{"deadline", func(_ *fixture, req *SwapRequest) { req.Deadline = testNow.Add(-time.Second) }, router.ErrDeadlineExpired},
		{"zero deadline", func(_ *fixture, req *SwapRequest) { req.Deadline = time.Time{} }, router.ErrDeadlineExpired},
		{"zero amount", func(_ *fixture, req *SwapRequest) { req.AmountIn = 0 }, router.ErrZeroAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			f.deposit(t, 1000)

			req := f.swapRequest(1000, RouterA)
			tt.prepare(f, &req)

			out, err := f.ledger.Swap(ctx, f.depositor, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSwapFailed)
			assert.ErrorIs(t, err, tt.cause)
			assert.Zero(t, out)

			assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
			assert.Zero(t, f.ledger.DestBalance())
			assert.Equal(t, uint64(1000), balanceOf(t, f.src, f.custody))

			allowance, _ := f.src.Allowance(ctx, f.custody, f.routerA.addr)
			assert.Zero(t, allowance)
		})
	}
}

func TestWithdrawAll_Unauthorized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	require.NoError(t, err)

	for _, caller := range []solana.PublicKey{f.depositor, f.custody, newKey(), {}} {
		amount, err := f.ledger.WithdrawAll(ctx, caller)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Zero(t, amount)
	}
	assert.Equal(t, uint64(1800), f.ledger.DestBalance())
	assert.Equal(t, uint64(1800), balanceOf(t, f.dst, f.custody))
}

func TestWithdrawAll_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	amount, err := f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Zero(t, amount)

	f.deposit(t, 1000)
	_, err = f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	require.NoError(t, err)

	amount, err = f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), amount)

	amount, err = f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Zero(t, amount)
	assert.Equal(t, uint64(1800), balanceOf(t, f.dst, f.owner))
}

func TestWithdrawAll_TransferFailureRestoresBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	require.NoError(t, err)

	f.dst.failTransfer = true
	amount, err := f.ledger.WithdrawAll(ctx, f.owner)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Zero(t, amount)
	assert.Equal(t, uint64(1800), f.ledger.DestBalance())

	f.dst.failTransfer = false
	amount, err = f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), amount)
}

func TestWithdrawAll_SourceBalanceUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(400, RouterA))
	require.NoError(t, err)

	_, err = f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), f.ledger.SourceBalance())
	assert.Equal(t, uint64(600), balanceOf(t, f.src, f.custody))
}

func TestConservation_RandomSequence(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var deposited uint64
	steps := []struct {
		deposit uint64
		swap    uint64
		sel     RouterSelector
		fail    bool
	}{
		{deposit: 500, swap: 200},
		{deposit: 300, swap: 500, fail: true},
		{deposit: 0, swap: 600, sel: RouterB},
		{deposit: 1000, swap: 2000},
		{deposit: 1, swap: 1, sel: 9},
	}

	for i, s := range steps {
		if s.deposit > 0 {
			f.deposit(t, s.deposit)
			deposited += s.deposit
		}
		f.routerA.err = nil
		if s.fail {
			f.routerA.err = errors.New("pool drained")
		}
		_, _ = f.ledger.Swap(ctx, f.depositor, f.swapRequest(s.swap, s.sel))
		if i%2 == 1 {
			_, err := f.ledger.WithdrawAll(ctx, f.owner)
			require.NoError(t, err)
		}

		assert.LessOrEqual(t, f.ledger.SourceBalance(), deposited)
		report, err := f.ledger.Audit(ctx)
		require.NoError(t, err)
		assert.True(t, report.OK(), "step %d: %+v", i, report)
		assert.Zero(t, report.SourceSurplus, "step %d", i)
		assert.Zero(t, report.DestSurplus, "step %d", i)
	}
}

func TestConcurrentDeposits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const workers = 16
	depositors := make([]solana.PublicKey, workers)
	for i := range depositors {
		depositors[i] = newKey()
		require.NoError(t, f.src.Mint(depositors[i], 100))
		require.NoError(t, f.src.Approve(ctx, depositors[i], f.custody, 100))
	}

	var wg sync.WaitGroup
	for _, d := range depositors {
		wg.Add(1)
		go func(d solana.PublicKey) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, f.ledger.Deposit(ctx, d, 10))
			}
		}(d)
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*100), f.ledger.SourceBalance())
	assert.Equal(t, uint64(workers*100), balanceOf(t, f.src, f.custody))
}

func TestPauseSwitches(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(500, RouterA))
	require.NoError(t, err)

	f.switches.paused[OpDeposit] = true
	f.switches.paused[OpSwap] = true

	require.NoError(t, f.src.Approve(ctx, f.depositor, f.custody, 10))
	assert.ErrorIs(t, f.ledger.Deposit(ctx, f.depositor, 10), ErrPaused)
	_, err = f.ledger.Swap(ctx, f.depositor, f.swapRequest(500, RouterA))
	assert.ErrorIs(t, err, ErrPaused)
	assert.Equal(t, uint64(500), f.ledger.SourceBalance())

	amount, err := f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1800), amount)

	f.switches.err = errors.New("redis down")
	assert.NoError(t, f.ledger.Deposit(ctx, f.depositor, 10))
}

func TestEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	require.NoError(t, err)
	_, err = f.ledger.WithdrawAll(ctx, newKey())
	require.Error(t, err)

	f.sink.err = errors.New("sink offline")
	_, err = f.ledger.WithdrawAll(ctx, f.owner)
	require.NoError(t, err)

	events := f.sink.snapshot()
	require.Len(t, events, 4)

	assert.Equal(t, models.EventDeposit, events[0].Kind)
	assert.Equal(t, models.StatusOK, events[0].Status)
	assert.Equal(t, "WETH", events[0].AssetIn)
	assert.Equal(t, "0.000001", events[0].AmountInUI.String())

	assert.Equal(t, models.EventSwap, events[1].Kind)
	assert.Equal(t, "router-a", events[1].Router)
	assert.Equal(t, uint64(1800), events[1].AmountOut)
	assert.Equal(t, uint64(1800), events[1].DestBalance)
	assert.Equal(t, "WETH/USDT", events[1].Pair())

	assert.Equal(t, models.EventWithdrawal, events[2].Kind)
	assert.Equal(t, models.StatusFailed, events[2].Status)
	assert.Contains(t, events[2].Error, "unauthorized")

	assert.Equal(t, models.StatusOK, events[3].Status)
	assert.Equal(t, uint64(1800), events[3].AmountOut)
	assert.Zero(t, events[3].DestBalance)
	assert.NotEqual(t, events[2].ID, events[3].ID)
}

func TestAudit_Surplus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)

	require.NoError(t, f.src.Transfer(ctx, f.depositor, f.custody, 42))

	report, err := f.ledger.Audit(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, uint64(42), report.SourceSurplus)
	assert.Equal(t, uint64(1042), report.SourceCustody)
}

func TestBalanceOverflow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)

	f.ledger.mu.Lock()
	f.ledger.destBalance = math.MaxUint64 - 100
	f.ledger.mu.Unlock()

	_, err := f.ledger.Swap(ctx, f.depositor, f.swapRequest(1000, RouterA))
	assert.ErrorIs(t, err, ErrSwapFailed)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Zero(t, f.ledger.SourceBalance())
	assert.Equal(t, uint64(math.MaxUint64-100), f.ledger.DestBalance())

	f.ledger.mu.Lock()
	f.ledger.sourceBalance = math.MaxUint64 - 5
	f.ledger.mu.Unlock()

	require.NoError(t, f.src.Approve(ctx, f.depositor, f.custody, 10))
	assert.ErrorIs(t, f.ledger.Deposit(ctx, f.depositor, 10), ErrBalanceOverflow)
	assert.Equal(t, uint64(math.MaxUint64-5), f.ledger.SourceBalance())
}

func TestParseRouterSelector(t *testing.T) {
	tests := []struct {
		in   string
		want RouterSelector
		err  bool
	}{
		{"0", RouterA, false},
		{"1", RouterB, false},
		{"a", RouterA, false},
		{" B ", RouterB, false},
		{"2", 2, false},
		{"x", 0, true},
		{"300", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRouterSelector(tt.in)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidRouterSelector, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCheckSwap_HasNoSideEffects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.deposit(t, 1000)
	before := len(f.sink.snapshot())

	ok := f.swapRequest(500, RouterA)
	assert.NoError(t, f.ledger.CheckSwap(ctx, ok))

	toUnknown := f.swapRequest(500, RouterB)
	toUnknown.Path = []solana.PublicKey{f.src.Address(), newKey()}
	var de *DirectionError
	require.ErrorAs(t, f.ledger.CheckSwap(ctx, toUnknown), &de)
	assert.Equal(t, SideDestination, de.Side)

	assert.ErrorIs(t, f.ledger.CheckSwap(ctx, f.swapRequest(1001, RouterA)), ErrInsufficientBalance)
	assert.ErrorIs(t, f.ledger.CheckSwap(ctx, f.swapRequest(1, 2)), ErrInvalidRouterSelector)

	f.switches.paused[OpSwap] = true
	assert.ErrorIs(t, f.ledger.CheckSwap(ctx, ok), ErrPaused)

	assert.Zero(t, f.routerA.callCount())
	assert.Zero(t, f.routerB.callCount())
	assert.Len(t, f.sink.snapshot(), before)
	assert.Equal(t, uint64(1000), f.ledger.SourceBalance())
}

func TestRefuseSwap_Journals(t *testing.T) {
	f := setup(t)
	reason := &DirectionError{Side: SideDestination, Want: f.dst.Address(), Got: newKey()}

	err := f.ledger.RefuseSwap(context.Background(), f.depositor, f.swapRequest(7, RouterB), reason)
	assert.Same(t, reason, err)

	events := f.sink.snapshot()
	require.NotEmpty(t, events)
	ev := events[len(events)-1]
	assert.Equal(t, models.EventSwap, ev.Kind)
	assert.Equal(t, models.StatusFailed, ev.Status)
	assert.Equal(t, "router-b", ev.Router)
	assert.Equal(t, uint64(7), ev.AmountIn)
	assert.Contains(t, ev.Error, ErrInvalidSwapDirection.Error())
}
