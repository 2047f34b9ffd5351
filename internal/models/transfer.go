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
	"time"

	"custody-capital-go/internal/amount"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferConfirmed TransferStatus = "confirmed"
	TransferFailed    TransferStatus = "failed"
)

type TransferKind string

const (
	TransferAllocationExit   TransferKind = "allocation_exit"
	TransferNativeWithdrawal TransferKind = "native_withdrawal"
	TransferStableWithdrawal TransferKind = "stable_withdrawal"
)

// TransferRecord is an outbound value movement issued by the core. It is
// handed to the transfer primitive and never awaited
type TransferRecord struct {
	Id            string         `json:"id"`
	Kind          TransferKind   `json:"kind"`
	AllocationId  uint64         `json:"allocation_id,omitempty"`
	Receiver      string         `json:"receiver"`
	AssetId       string         `json:"asset_id"`
	Amount        amount.Amount  `json:"amount"`
	Fee           amount.Amount  `json:"fee"`
	ComputeBudget uint64         `json:"compute_budget"`
	Status        TransferStatus `json:"status"`
	Detail        string         `json:"detail,omitempty"`
	IssuedAt      time.Time      `json:"issued_at"`
}

// TransferResult is reported back by the transfer primitive once the
// receiving side has accepted or rejected a transfer
type TransferResult struct {
	TransferId   string       `json:"transfer_id"`
	Kind         TransferKind `json:"kind"`
	AllocationId uint64       `json:"allocation_id"`
	Ok           bool         `json:"ok"`
	Detail       string       `json:"detail,omitempty"`
}

// Notification is the event emitted on every deposit and position addition
type Notification struct {
	Id           string         `json:"id"`
	Agent        string         `json:"agent"`
	Action       string         `json:"action"`
	Account      string         `json:"account,omitempty"`
	ExternalId   *amount.Amount `json:"external_id,omitempty"`
	Note         *amount.Amount `json:"note,omitempty"`
	AllocationId *uint64        `json:"allocation_id,omitempty"`
	AssetId      string         `json:"asset_id,omitempty"`
	Amount       amount.Amount  `json:"amount"`
	Timestamp    time.Time      `json:"timestamp"`
}

const (
	ActionDepositNative = "deposit_native"
	ActionDepositStable = "deposit_stable"
	ActionAddPosition   = "add_position"
)
