// Package treasury implements the custodial ledger: deposits of a source
// asset, swaps into a destination asset through one of two routers, and
// withdrawal of the destination balance to a single owner.
package treasury

import (
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/router"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Source  asset.Handle
	Dest    asset.Handle
	RouterA router.Gateway
	RouterB router.Gateway

	Owner solana.PublicKey
	// Custody is the account that holds deposited and swapped funds.
	Custody solana.PublicKey

	// Optional.
	Events   []EventSink
	Switches Switches
	Logger   *logrus.Logger
	Now      func() time.Time
}

// Ledger tracks the internal balances of custody funds. The mutex guards only
// balance reads and writes; it is never held across an asset or router call,
// so collaborators that call back into the ledger see committed state.
type Ledger struct {
	source  asset.Handle
	dest    asset.Handle
	routerA router.Gateway
	routerB router.Gateway
	custody solana.PublicKey
	guard   AccessGuard

	events   []EventSink
	switches Switches
	logger   *logrus.Logger
	now      func() time.Time

	mu            sync.Mutex
	sourceBalance uint64
	destBalance   uint64
	sourcePending uint64
	destPending   uint64
}

func New(cfg Config) (*Ledger, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	events := make([]EventSink, 0, len(cfg.Events))
	for _, s := range cfg.Events {
		if s != nil {
			events = append(events, s)
		}
	}

	return &Ledger{
		source:   cfg.Source,
		dest:     cfg.Dest,
		routerA:  cfg.RouterA,
		routerB:  cfg.RouterB,
		custody:  cfg.Custody,
		guard:    NewAccessGuard(cfg.Owner),
		events:   events,
		switches: cfg.Switches,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

func (c Config) validate() error {
	switch {
	case c.Source == nil || c.Dest == nil:
		return fmt.Errorf("%w: source and destination assets are required", ErrInvalidConfig)
	case c.Source.Address().IsZero() || c.Dest.Address().IsZero():
		return fmt.Errorf("%w: asset address is zero", ErrInvalidConfig)
	case c.Source.Address().Equals(c.Dest.Address()):
		return fmt.Errorf("%w: source and destination are the same asset %s", ErrInvalidConfig, c.Source.Address())
	case c.RouterA == nil || c.RouterB == nil:
		return fmt.Errorf("%w: both routers are required", ErrInvalidConfig)
	case c.RouterA.Address().IsZero() || c.RouterB.Address().IsZero():
		return fmt.Errorf("%w: router address is zero", ErrInvalidConfig)
	case c.RouterA.Address().Equals(c.RouterB.Address()):
		return fmt.Errorf("%w: routers share address %s", ErrInvalidConfig, c.RouterA.Address())
	case c.Owner.IsZero():
		return fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	case c.Custody.IsZero():
		return fmt.Errorf("%w: custody is required", ErrInvalidConfig)
	}
	return nil
}

// State is a consistent view of the ledger.
type State struct {
	SourceAsset   solana.PublicKey `json:"source_asset"`
	DestAsset     solana.PublicKey `json:"dest_asset"`
	RouterA       solana.PublicKey `json:"router_a"`
	RouterB       solana.PublicKey `json:"router_b"`
	Owner         solana.PublicKey `json:"owner"`
	Custody       solana.PublicKey `json:"custody"`
	SourceBalance uint64           `json:"source_balance"`
	DestBalance   uint64           `json:"dest_balance"`
}

func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		SourceAsset:   l.source.Address(),
		DestAsset:     l.dest.Address(),
		RouterA:       l.routerA.Address(),
		RouterB:       l.routerB.Address(),
		Owner:         l.guard.Owner(),
		Custody:       l.custody,
		SourceBalance: l.sourceBalance,
		DestBalance:   l.destBalance,
	}
}

func (l *Ledger) SourceBalance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sourceBalance
}

func (l *Ledger) DestBalance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destBalance
}

func (l *Ledger) SourceAsset() asset.Handle { return l.source }
func (l *Ledger) DestAsset() asset.Handle   { return l.dest }
func (l *Ledger) RouterA() solana.PublicKey { return l.routerA.Address() }
func (l *Ledger) RouterB() solana.PublicKey { return l.routerB.Address() }
func (l *Ledger) Owner() solana.PublicKey   { return l.guard.Owner() }
func (l *Ledger) Custody() solana.PublicKey { return l.custody }
func (l *Ledger) Guard() AccessGuard        { return l.guard }
