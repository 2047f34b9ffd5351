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

package capital

import (
	"fmt"
	"slices"
	"time"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"
)

const (
	DefaultMaxPositions     = 7
	DefaultLockDuration     = 86_400_000 * time.Millisecond
	DefaultWithdrawBaseCost = 10
	DefaultTransferCost     = 2
)

// Costs prices an allocation withdrawal in compute units
type Costs struct {
	WithdrawBase uint64
	PerTransfer  uint64
}

// WithdrawCost is the budget needed to withdraw an allocation holding n positions
func (c Costs) WithdrawCost(n int) uint64 {
	return c.WithdrawBase + c.PerTransfer*uint64(n)
}

// Store owns every capital allocation. Ids start at 0 and are never reused
type Store struct {
	nextId       uint64
	maxPositions int
	costs        Costs
	allocations  map[uint64]*models.CapitalAllocation
}

func NewStore(maxPositions int, costs Costs) *Store {
	if maxPositions <= 0 {
		maxPositions = DefaultMaxPositions
	}
	return &Store{
		maxPositions: maxPositions,
		costs:        costs,
		allocations:  make(map[uint64]*models.CapitalAllocation),
	}
}

func (s *Store) Costs() Costs {
	return s.costs
}

// Create opens an Active allocation locked until now+lock
func (s *Store) Create(owner string, entry models.AssetPosition, now time.Time, lock time.Duration) uint64 {
	id := s.nextId
	s.allocations[id] = &models.CapitalAllocation{
		Id:             id,
		Owner:          owner,
		Status:         models.AllocationActive,
		Positions:      []models.AssetPosition{},
		EntryTimestamp: now,
		ExitTimestamp:  now.Add(lock),
		EntryValue:     entry,
	}
	s.nextId++
	return id
}

func (s *Store) lookup(id uint64) (*models.CapitalAllocation, error) {
	a, ok := s.allocations[id]
	if !ok {
		return nil, fmt.Errorf("%w: capital allocation %d", store.ErrNotFound, id)
	}
	return a, nil
}

// AddPosition appends a position. Status is not checked, so value that
// arrives after withdrawal is still recorded against the allocation
func (s *Store) AddPosition(id uint64, position models.AssetPosition) error {
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	if len(a.Positions) >= s.maxPositions {
		return fmt.Errorf("%w: capital allocation %d already holds %d positions", store.ErrCapacityExceeded, id, len(a.Positions))
	}
	a.Positions = append(a.Positions, position)
	return nil
}

// Withdraw flips an allocation to Withdrawn and returns the positions that
// must be transferred out. Nothing changes unless every check passes
func (s *Store) Withdraw(id uint64, now time.Time, budget uint64) ([]models.AssetPosition, error) {
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AllocationActive {
		return nil, fmt.Errorf("%w: capital allocation %d", store.ErrAlreadyWithdrawn, id)
	}
	if now.Before(a.ExitTimestamp) {
		return nil, fmt.Errorf("%w: capital allocation %d unlocks at %s", store.ErrMaturityGate, id, a.ExitTimestamp.UTC().Format(time.RFC3339))
	}
	if cost := s.costs.WithdrawCost(len(a.Positions)); budget < cost {
		return nil, fmt.Errorf("%w: need %d, have %d", store.ErrInsufficientComputeBudget, cost, budget)
	}

	a.Status = models.AllocationWithdrawn
	return slices.Clone(a.Positions), nil
}

// RecordExit writes the exit value of a withdrawn, unsettled allocation
func (s *Store) RecordExit(id uint64, exit models.AssetPosition) error {
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	if a.Status != models.AllocationWithdrawn || a.ExitValue != nil {
		return fmt.Errorf("%w: capital allocation %d", store.ErrNotWithdrawn, id)
	}
	a.ExitValue = &exit
	return nil
}

func (s *Store) Get(id uint64) (models.CapitalAllocation, error) {
	a, err := s.lookup(id)
	if err != nil {
		return models.CapitalAllocation{}, err
	}
	return a.Clone(), nil
}

// AttachTransfers records the transfers issued for an allocation
func (s *Store) AttachTransfers(id uint64, transfers []models.TransferRecord) error {
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.Transfers = append(a.Transfers, transfers...)
	return nil
}

// UpdateTransfer sets the outcome of a previously issued transfer. The
// allocation status is never rolled back
func (s *Store) UpdateTransfer(id uint64, transferId string, status models.TransferStatus, detail string) error {
	a, err := s.lookup(id)
	if err != nil {
		return err
	}
	for i := range a.Transfers {
		if a.Transfers[i].Id == transferId {
			a.Transfers[i].Status = status
			a.Transfers[i].Detail = detail
			return nil
		}
	}
	return fmt.Errorf("%w: transfer %s on capital allocation %d", store.ErrNotFound, transferId, id)
}

// Matured lists the ids of Active allocations whose lock has expired
func (s *Store) Matured(now time.Time) []uint64 {
	var ids []uint64
	for id, a := range s.allocations {
		if a.Status == models.AllocationActive && !now.Before(a.ExitTimestamp) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// All returns copies of every allocation ordered by id
func (s *Store) All() []models.CapitalAllocation {
	out := make([]models.CapitalAllocation, 0, len(s.allocations))
	for _, a := range s.allocations {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b models.CapitalAllocation) int {
		switch {
		case a.Id < b.Id:
			return -1
		case a.Id > b.Id:
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) NextId() uint64 {
	return s.nextId
}

// Restore replaces every allocation. nextId is raised past the highest
// restored id if needed so ids are never reused
func (s *Store) Restore(nextId uint64, allocations []models.CapitalAllocation) {
	s.allocations = make(map[uint64]*models.CapitalAllocation, len(allocations))
	for _, a := range allocations {
		restored := a.Clone()
		if restored.Positions == nil {
			restored.Positions = []models.AssetPosition{}
		}
		s.allocations[a.Id] = &restored
		if a.Id >= nextId {
			nextId = a.Id + 1
		}
	}
	s.nextId = nextId
}
