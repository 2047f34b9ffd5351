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
	"database/sql"
	"fmt"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.SnapshotStore.
var _ store.SnapshotStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// Ping verifies the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema() error {
	schema := `
	-- Administrative settings of the custody core
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Deposit ledger balances; amounts are base-10 strings of up to 128 bits
	CREATE TABLE IF NOT EXISTS ledger_entries (
		namespace TEXT NOT NULL CHECK (namespace IN ('native', 'stable')),
		external_id TEXT NOT NULL,
		account TEXT NOT NULL,
		balance TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, external_id, account)
	);

	-- Create index for per-account lookups
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account);

	-- Capital allocations; timestamps are unix milliseconds
	CREATE TABLE IF NOT EXISTS allocations (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('active', 'withdrawn')),
		entry_timestamp INTEGER NOT NULL,
		exit_timestamp INTEGER NOT NULL,
		entry_asset TEXT NOT NULL,
		entry_amount TEXT NOT NULL,
		exit_asset TEXT,
		exit_amount TEXT
	);

	-- Create index for owner lookups
	CREATE INDEX IF NOT EXISTS idx_allocations_owner ON allocations(owner);

	CREATE TABLE IF NOT EXISTS positions (
		allocation_id INTEGER NOT NULL REFERENCES allocations(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		asset_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (allocation_id, seq)
	);

	-- Outbound transfers issued on allocation withdrawal
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		allocation_id INTEGER NOT NULL,
		receiver TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		compute_budget INTEGER NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'failed')),
		detail TEXT NOT NULL DEFAULT '',
		issued_at INTEGER NOT NULL
	);

	-- Create index for allocation lookups
	CREATE INDEX IF NOT EXISTS idx_transfers_allocation ON transfers(allocation_id);

	CREATE TABLE IF NOT EXISTS leaderboard (
		list TEXT NOT NULL CHECK (list IN ('profit', 'loss')),
		rank INTEGER NOT NULL,
		account TEXT NOT NULL,
		value TEXT NOT NULL,
		allocation_id INTEGER NOT NULL,
		PRIMARY KEY (list, rank)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
