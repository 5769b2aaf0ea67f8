package treasury

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newKey() solana.PublicKey { return solana.NewWallet().PublicKey() }

// mockRouter pulls the input from the payer and mints a scripted output to
// the recipient.
type mockRouter struct {
	addr     solana.PublicKey
	name     string
	src, dst *asset.Token
	out      uint64
	err      error
	onSwap   func(ctx context.Context)

	mu    sync.Mutex
	calls int
	last  router.SwapRequest
}

func (m *mockRouter) Address() solana.PublicKey { return m.addr }
func (m *mockRouter) Name() string              { return m.name }

func (m *mockRouter) SwapExactIn(ctx context.Context, req router.SwapRequest) (uint64, error) {
	m.mu.Lock()
	m.calls++
	m.last = req
	m.mu.Unlock()

	if m.onSwap != nil {
		m.onSwap(ctx)
	}
	if err := router.CheckRequest(req, testNow); err != nil {
		return 0, err
	}
	if m.err != nil {
		return 0, m.err
	}
	if err := m.src.TransferFrom(ctx, m.addr, req.Payer, m.addr, req.AmountIn); err != nil {
		return 0, err
	}
	if err := router.CheckMinOut(m.out, req.MinOut); err != nil {
		_ = m.src.Transfer(ctx, m.addr, req.Payer, req.AmountIn)
		return 0, err
	}
	if err := m.dst.Mint(req.Recipient, m.out); err != nil {
		return 0, err
	}
	return m.out, nil
}

func (m *mockRouter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// flakyHandle fails outbound transfers on demand.
type flakyHandle struct {
	*asset.Token
	failTransfer bool
}

func (f *flakyHandle) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if f.failTransfer {
		return errors.New("transfer rejected")
	}
	return f.Token.Transfer(ctx, from, to, amount)
}

type recordingSink struct {
	mu     sync.Mutex
	events []*models.LedgerEvent
	err    error
}

func (r *recordingSink) RecordEvent(_ context.Context, ev *models.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) snapshot() []*models.LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.LedgerEvent(nil), r.events...)
}

type fakeSwitches struct {
	paused map[Operation]bool
	err    error
}

func (f *fakeSwitches) Paused(_ context.Context, op Operation) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.paused[op], nil
}

type fixture struct {
	ledger    *Ledger
	src       *asset.Token
	dst       *flakyHandle
	routerA   *mockRouter
	routerB   *mockRouter
	owner     solana.PublicKey
	custody   solana.PublicKey
	depositor solana.PublicKey
	sink      *recordingSink
	switches  *fakeSwitches
}

func setup(t *testing.T) *fixture {
	t.Helper()

	src := asset.NewToken(newKey(), "WETH", 9)
	dst := &flakyHandle{Token: asset.NewToken(newKey(), "USDT", 6)}

	f := &fixture{
		src:       src,
		dst:       dst,
		routerA:   &mockRouter{addr: newKey(), name: "router-a", src: src, dst: dst.Token, out: 1800},
		routerB:   &mockRouter{addr: newKey(), name: "router-b", src: src, dst: dst.Token, out: 1700},
		owner:     newKey(),
		custody:   newKey(),
		depositor: newKey(),
		sink:      &recordingSink{},
		switches:  &fakeSwitches{paused: map[Operation]bool{}},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	l, err := New(Config{
		Source:   src,
		Dest:     dst,
		RouterA:  f.routerA,
		RouterB:  f.routerB,
		Owner:    f.owner,
		Custody:  f.custody,
		Events:   []EventSink{f.sink},
		Switches: f.switches,
		Logger:   logger,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	f.ledger = l

	require.NoError(t, src.Mint(f.depositor, 1_000_000))
	return f
}

func (f *fixture) deposit(t *testing.T, amount uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.src.Approve(ctx, f.depositor, f.custody, amount))
	require.NoError(t, f.ledger.Deposit(ctx, f.depositor, amount))
}

func (f *fixture) swapRequest(amountIn uint64, sel RouterSelector) SwapRequest {
	return SwapRequest{
		Path:     []solana.PublicKey{f.src.Address(), f.dst.Address()},
		AmountIn: amountIn,
		Router:   sel,
		Deadline: testNow.Add(time.Minute),
	}
}

func balanceOf(t *testing.T, h asset.Handle, acct solana.PublicKey) uint64 {
	t.Helper()
	b, err := h.BalanceOf(context.Background(), acct)
	require.NoError(t, err)
	return b
}
