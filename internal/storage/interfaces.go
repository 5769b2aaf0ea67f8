package storage

import (
	"context"
	"io"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/models"
)

// EventCache keeps the most recent ledger events and fans them out to
// subscribers.
type EventCache interface {
	// RecordEvent pushes the event onto the recent list and publishes it
	RecordEvent(ctx context.Context, ev *models.LedgerEvent) error

	// RecentEvents returns up to limit events, newest first
	RecentEvents(ctx context.Context, limit int64) ([]*models.LedgerEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// EventStore is the durable ledger event journal.
type EventStore interface {
	// InsertEvent appends the event to the journal
	InsertEvent(ctx context.Context, ev *models.LedgerEvent) error

	// RecordEvent is InsertEvent under the ledger sink name
	RecordEvent(ctx context.Context, ev *models.LedgerEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// ReplayGuard remembers request signatures so a signed request is accepted
// once.
type ReplayGuard interface {
	// Claim records key for ttl and reports whether it was unseen
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// EventHandler processes events delivered by a subscription.
type EventHandler func(*models.LedgerEvent)
