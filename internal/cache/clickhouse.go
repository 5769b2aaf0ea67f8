package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/sirupsen/logrus"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore is the append-only ledger event journal.
type ClickHouseStore struct {
	conn     driver.Conn
	database string
	logger   *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = "treasury"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, database: cfg.Database, logger: cfg.Logger}, nil
}

// EventsTableDDL creates the journal table in database.
func EventsTableDDL(database string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id             String,
			timestamp      DateTime64(3, 'UTC'),
			kind           LowCardinality(String),
			status         LowCardinality(String),
			caller         String,
			router         LowCardinality(String),
			asset_in       LowCardinality(String),
			asset_out      LowCardinality(String),
			amount_in      UInt64,
			amount_out     UInt64,
			amount_in_ui   Decimal(38, 18),
			amount_out_ui  Decimal(38, 18),
			source_balance UInt64,
			dest_balance   UInt64,
			error          String
		) ENGINE = MergeTree()
		ORDER BY (timestamp, id)
	`, database, constants.ClickHouseEventsTable)
}

// EnsureSchema creates the database and journal table if missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+c.database); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	if err := c.conn.Exec(ctx, EventsTableDDL(c.database)); err != nil {
		return fmt.Errorf("create %s table: %w", constants.ClickHouseEventsTable, err)
	}
	return nil
}

func (c *ClickHouseStore) InsertEvent(ctx context.Context, ev *models.LedgerEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, timestamp, kind, status, caller, router, asset_in, asset_out,
			amount_in, amount_out, amount_in_ui, amount_out_ui,
			source_balance, dest_balance, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, constants.ClickHouseEventsTable)

	err := c.conn.Exec(ctx, query, eventRow(ev)...)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (c *ClickHouseStore) RecordEvent(ctx context.Context, ev *models.LedgerEvent) error {
	return c.InsertEvent(ctx, ev)
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

// eventRow orders ev's fields to match the INSERT column list.
func eventRow(ev *models.LedgerEvent) []any {
	return []any{
		ev.ID,
		ev.Timestamp,
		string(ev.Kind),
		string(ev.Status),
		ev.Caller,
		ev.Router,
		ev.AssetIn,
		ev.AssetOut,
		ev.AmountIn,
		ev.AmountOut,
		ev.AmountInUI,
		ev.AmountOutUI,
		ev.SourceBalance,
		ev.DestBalance,
		ev.Error,
	}
}
