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

const (
	// Settings queries
	queryGetSettings = `
		SELECT key, value
		FROM settings`

	queryInsertSetting = `
		INSERT INTO settings (key, value) VALUES (?, ?)`

	// Ledger queries
	queryGetLedgerEntries = `
		SELECT namespace, external_id, account, balance
		FROM ledger_entries
		ORDER BY namespace, account, LENGTH(external_id), external_id`

	queryGetLedgerEntriesByAccount = `
		SELECT namespace, external_id, account, balance
		FROM ledger_entries
		WHERE account = ?
		ORDER BY namespace, LENGTH(external_id), external_id`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (namespace, external_id, account, balance)
		VALUES (?, ?, ?, ?)`

	// Allocation queries
	queryGetAllocations = `
		SELECT id, owner, status, entry_timestamp, exit_timestamp,
		       entry_asset, entry_amount, exit_asset, exit_amount
		FROM allocations
		ORDER BY id`

	queryInsertAllocation = `
		INSERT INTO allocations (id, owner, status, entry_timestamp, exit_timestamp,
		                         entry_asset, entry_amount, exit_asset, exit_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetPositions = `
		SELECT allocation_id, asset_id, amount
		FROM positions
		ORDER BY allocation_id, seq`

	queryInsertPosition = `
		INSERT INTO positions (allocation_id, seq, asset_id, amount)
		VALUES (?, ?, ?, ?)`

	queryGetTransfers = `
		SELECT id, kind, allocation_id, receiver, asset_id, amount, fee,
		       compute_budget, status, detail, issued_at
		FROM transfers
		ORDER BY allocation_id, seq`

	queryInsertTransfer = `
		INSERT INTO transfers (id, seq, kind, allocation_id, receiver, asset_id, amount, fee,
		                       compute_budget, status, detail, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Leaderboard queries
	queryGetLeaderboard = `
		SELECT list, account, value, allocation_id
		FROM leaderboard
		ORDER BY list, rank`

	queryInsertLeaderboardItem = `
		INSERT INTO leaderboard (list, rank, account, value, allocation_id)
		VALUES (?, ?, ?, ?, ?)`

	// Snapshot replacement
	queryClearSettings    = `DELETE FROM settings`
	queryClearLedger      = `DELETE FROM ledger_entries`
	queryClearAllocations = `DELETE FROM allocations`
	queryClearPositions   = `DELETE FROM positions`
	queryClearTransfers   = `DELETE FROM transfers`
	queryClearLeaderboard = `DELETE FROM leaderboard`
)

const (
	settingOperator         = "operator"
	settingAgent            = "agent"
	settingLockDurationMs   = "lock_duration_ms"
	settingNextAllocationId = "next_allocation_id"

	listProfit = "profit"
	listLoss   = "loss"
)
