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

// InboundTransfer is a value transfer received from a token contract on
// behalf of Sender, with Msg carrying the routing instruction
type InboundTransfer struct {
	Sender string        `json:"sender"`
	Token  string        `json:"token"`
	Amount amount.Amount `json:"amount"`
	Msg    string        `json:"msg"`
}

// InboundResult describes what an inbound transfer was applied to
type InboundResult struct {
	Action       string         `json:"action"`
	NewBalance   *amount.Amount `json:"new_balance,omitempty"`
	AllocationId *uint64        `json:"allocation_id,omitempty"`
}

// BalanceResponse is returned by balance queries
type BalanceResponse struct {
	ExternalId amount.Amount `json:"external_id"`
	Account    string        `json:"account"`
	Namespace  Namespace     `json:"namespace"`
	Balance    amount.Amount `json:"balance"`
}

// AllocationSummary is the compact allocation view: active flag, owner,
// exit time and positions
type AllocationSummary struct {
	Active        bool            `json:"active"`
	Owner         string          `json:"owner"`
	ExitTimestamp int64           `json:"exit_timestamp"`
	Positions     []AssetPosition `json:"positions"`
}

// LeaderboardResponse holds both ranked lists
type LeaderboardResponse struct {
	Profit []LeaderboardItem `json:"profit"`
	Loss   []LeaderboardItem `json:"loss"`
}

// SettlementResult is returned after an exit value has been recorded
type SettlementResult struct {
	AllocationId uint64        `json:"allocation_id"`
	Owner        string        `json:"owner"`
	Percent      amount.Amount `json:"percent"`
	IsProfit     bool          `json:"is_profit"`
	Ranked       bool          `json:"ranked"`
}

// WithdrawalResult is returned by ledger and allocation withdrawals
type WithdrawalResult struct {
	Amount    amount.Amount    `json:"amount"`
	Transfers []TransferRecord `json:"transfers"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
