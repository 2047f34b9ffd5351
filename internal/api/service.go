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

package api

import (
	"context"
	"fmt"
	"sync"

	"custody-capital-go/internal/custody"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

// Pinger is implemented by snapshot stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerService serializes access to the custody core and persists a
// snapshot after every successful mutation.
type LedgerService struct {
	mutex         sync.Mutex
	core          *custody.Service
	snapshots     store.SnapshotStore
	defaultBudget uint64
}

// NewLedgerService restores the last snapshot (if any) into core.
// snapshots may be nil, in which case state lives in memory only.
func NewLedgerService(ctx context.Context, core *custody.Service, snapshots store.SnapshotStore) (*LedgerService, error) {
	s := &LedgerService{
		core:          core,
		snapshots:     snapshots,
		defaultBudget: core.Config().DefaultComputeBudget,
	}

	if snapshots == nil {
		zap.L().Warn("No snapshot store configured, state will not persist")
		return s, nil
	}

	snap, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load snapshot: %w", err)
	}
	if err := core.Restore(snap); err != nil {
		return nil, fmt.Errorf("unable to restore snapshot: %w", err)
	}
	return s, nil
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if p, ok := s.snapshots.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}

// DefaultComputeBudget is applied when a request carries no budget.
func (s *LedgerService) DefaultComputeBudget() uint64 {
	return s.defaultBudget
}

// mutate runs fn under the lock and saves a snapshot when it succeeds.
// A failed save is returned but the in-memory change stands. The save
// ignores cancellation of ctx since fn has already committed.
func (s *LedgerService) mutate(ctx context.Context, fn func() error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := fn(); err != nil {
		return err
	}
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.SaveSnapshot(context.WithoutCancel(ctx), s.core.Snapshot()); err != nil {
		zap.L().Error("Failed to persist snapshot", zap.Error(err))
		return fmt.Errorf("unable to persist snapshot: %w", err)
	}
	return nil
}

func (s *LedgerService) read(fn func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	fn()
}
