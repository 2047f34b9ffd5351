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

package models

import (
	"slices"
	"time"

	"custody-capital-go/internal/amount"
)

type AllocationStatus string

const (
	AllocationActive    AllocationStatus = "active"
	AllocationWithdrawn AllocationStatus = "withdrawn"
)

// AssetPosition is a quantity of a single asset
type AssetPosition struct {
	AssetId string        `json:"asset_id"`
	Amount  amount.Amount `json:"amount"`
}

// CapitalAllocation is a time-locked pool of positions owned by one account
type CapitalAllocation struct {
	Id             uint64           `json:"id"`
	Owner          string           `json:"owner"`
	Status         AllocationStatus `json:"status"`
	Positions      []AssetPosition  `json:"positions"`
	EntryTimestamp time.Time        `json:"entry_timestamp"`
	ExitTimestamp  time.Time        `json:"exit_timestamp"`
	EntryValue     AssetPosition    `json:"entry_value"`
	ExitValue      *AssetPosition   `json:"exit_value,omitempty"`
	Transfers      []TransferRecord `json:"transfers,omitempty"`
}

func (c CapitalAllocation) IsActive() bool {
	return c.Status == AllocationActive
}

// Settled reports whether an exit value has been recorded
func (c CapitalAllocation) Settled() bool {
	return c.ExitValue != nil
}

// Clone returns a deep copy so callers cannot mutate store-owned slices
func (c CapitalAllocation) Clone() CapitalAllocation {
	out := c
	out.Positions = slices.Clone(c.Positions)
	out.Transfers = slices.Clone(c.Transfers)
	if c.ExitValue != nil {
		exit := *c.ExitValue
		out.ExitValue = &exit
	}
	return out
}

// Settings are the mutable administrative parameters of the custody core
type Settings struct {
	Operator     string        `json:"operator"`
	Agent        string        `json:"agent"`
	LockDuration time.Duration `json:"lock_duration"`
}

// Snapshot is the full persisted state of the custody core
type Snapshot struct {
	Settings         Settings            `json:"settings"`
	// LockDurationSet distinguishes a stored zero lock from no stored lock
	LockDurationSet  bool                `json:"lock_duration_set"`
	Entries          []LedgerEntry       `json:"entries"`
	Allocations      []CapitalAllocation `json:"allocations"`
	NextAllocationId uint64              `json:"next_allocation_id"`
	Profit           []LeaderboardItem   `json:"profit"`
	Loss             []LeaderboardItem   `json:"loss"`
}
