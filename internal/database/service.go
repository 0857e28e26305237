/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"server-market-go/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Service owns the single SQLite handle. Only the gateway worker should call
// WithTx; every other component receives a *Tx from inside a unit of work.
type Service struct {
	db *sqlx.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.BusyTimeout < 0 {
		return nil, fmt.Errorf("busy timeout cannot be negative, got %v", cfg.BusyTimeout)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sqlx.Open("sqlite3", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// One connection: the gateway worker is the only writer, and an in-memory
	// database lives exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func dataSourceName(cfg models.DatabaseConfig) string {
	params := []string{
		fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
		"_foreign_keys=on",
	}
	if !strings.Contains(cfg.Path, ":memory:") {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	}
	return cfg.Path + "?" + strings.Join(params, "&")
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// WithTx runs fn inside one storage transaction. The transaction commits when
// fn returns nil and rolls back otherwise, including when fn panics.
func (s *Service) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Tx{tx: tx, now: time.Now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Account balances in minor units; only SYSTEM may go negative
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CHECK (id = 'SYSTEM' OR balance >= 0)
	);

	-- Sell listings; quantity -1 marks an unlimited system listing
	CREATE TABLE IF NOT EXISTS listings (
		item TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		seller TEXT NOT NULL,
		price INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		daily_limit INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (item, variant, seller),
		CHECK (seller = 'SYSTEM' OR quantity >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_listings_item_price ON listings(item, price);
	CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller);

	-- Standing buy orders; target_amount -1 marks a system order
	CREATE TABLE IF NOT EXISTS purchase_orders (
		item TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		buyer TEXT NOT NULL,
		price INTEGER NOT NULL,
		target_amount INTEGER NOT NULL,
		current_amount INTEGER NOT NULL DEFAULT 0,
		daily_limit INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (item, variant, buyer),
		CHECK (target_amount < 0 OR current_amount <= target_amount)
	);

	CREATE INDEX IF NOT EXISTS idx_purchase_orders_item_price ON purchase_orders(item, variant, price);

	-- Per-day counters of trade with the system
	CREATE TABLE IF NOT EXISTS daily_quota (
		day TEXT NOT NULL,
		account TEXT NOT NULL,
		item TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, account, item, variant, kind)
	);

	-- Append-only trade history
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		from_id TEXT NOT NULL,
		from_kind TEXT NOT NULL,
		from_name TEXT NOT NULL,
		to_id TEXT NOT NULL,
		to_kind TEXT NOT NULL,
		to_name TEXT NOT NULL,
		amount INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_history_from ON history(from_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_history_to ON history(to_id, created_at);

	-- Items waiting for an account that could not receive them directly
	CREATE TABLE IF NOT EXISTS parcels (
		account TEXT NOT NULL,
		item TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (account, item, variant)
	);

	-- Physical items convertible to balance
	CREATE TABLE IF NOT EXISTS currency_items (
		item TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		value INTEGER NOT NULL,
		PRIMARY KEY (item, variant)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
