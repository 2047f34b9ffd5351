package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"

	"go.uber.org/zap"
)

// SaveSnapshot replaces the stored state with snap in a single transaction.
func (s *Service) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			zap.L().Warn("Failed to rollback snapshot transaction", zap.Error(err))
		}
	}()

	for _, q := range []string{queryClearSettings, queryClearLedger, queryClearPositions, queryClearTransfers, queryClearAllocations, queryClearLeaderboard} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear snapshot tables: %w", err)
		}
	}

	settings := map[string]string{
		settingOperator:         snap.Settings.Operator,
		settingAgent:            snap.Settings.Agent,
		settingNextAllocationId: strconv.FormatUint(snap.NextAllocationId, 10),
	}
	if snap.LockDurationSet {
		settings[settingLockDurationMs] = strconv.FormatInt(snap.Settings.LockDuration.Milliseconds(), 10)
	}
	for k, v := range settings {
		if _, err := tx.ExecContext(ctx, queryInsertSetting, k, v); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}

	for _, e := range snap.Entries {
		if _, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
			string(e.Namespace), e.Key.ExternalId.String(), e.Key.Account, e.Balance.String()); err != nil {
			return fmt.Errorf("failed to save ledger entry: %w", err)
		}
	}

	for _, a := range snap.Allocations {
		var exitAsset, exitAmount sql.NullString
		if a.ExitValue != nil {
			exitAsset = sql.NullString{String: a.ExitValue.AssetId, Valid: true}
			exitAmount = sql.NullString{String: a.ExitValue.Amount.String(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, queryInsertAllocation,
			int64(a.Id), a.Owner, string(a.Status),
			a.EntryTimestamp.UnixMilli(), a.ExitTimestamp.UnixMilli(),
			a.EntryValue.AssetId, a.EntryValue.Amount.String(),
			exitAsset, exitAmount); err != nil {
			return fmt.Errorf("failed to save capital allocation %d: %w", a.Id, err)
		}

		for i, p := range a.Positions {
			if _, err := tx.ExecContext(ctx, queryInsertPosition, int64(a.Id), i, p.AssetId, p.Amount.String()); err != nil {
				return fmt.Errorf("failed to save position %d of capital allocation %d: %w", i, a.Id, err)
			}
		}

		for i, t := range a.Transfers {
			if _, err := tx.ExecContext(ctx, queryInsertTransfer,
				t.Id, i, string(t.Kind), int64(a.Id), t.Receiver, t.AssetId,
				t.Amount.String(), t.Fee.String(), int64(t.ComputeBudget),
				string(t.Status), t.Detail, t.IssuedAt.UnixMilli()); err != nil {
				return fmt.Errorf("failed to save transfer %s: %w", t.Id, err)
			}
		}
	}

	for list, items := range map[string][]models.LeaderboardItem{listProfit: snap.Profit, listLoss: snap.Loss} {
		for rank, item := range items {
			if _, err := tx.ExecContext(ctx, queryInsertLeaderboardItem,
				list, rank, item.Account, item.Value.String(), int64(item.AllocationId)); err != nil {
				return fmt.Errorf("failed to save %s leaderboard entry: %w", list, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	zap.L().Debug("Snapshot saved",
		zap.Int("entries", len(snap.Entries)),
		zap.Int("allocations", len(snap.Allocations)))
	return nil
}

// LoadSnapshot reads the stored state. An empty database yields an empty
// snapshot.
func (s *Service) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}

	if err := s.loadSettings(ctx, snap); err != nil {
		return nil, err
	}

	entries, err := s.GetLedgerEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	snap.Entries = entries

	allocations, err := s.GetAllocations(ctx)
	if err != nil {
		return nil, err
	}
	snap.Allocations = allocations

	snap.Profit, snap.Loss, err = s.GetLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Snapshot loaded",
		zap.Int("entries", len(snap.Entries)),
		zap.Int("allocations", len(snap.Allocations)),
		zap.Uint64("next_allocation_id", snap.NextAllocationId))
	return snap, nil
}

func (s *Service) loadSettings(ctx context.Context, snap *models.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, queryGetSettings)
	if err != nil {
		return fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case settingOperator:
			snap.Settings.Operator = value
		case settingAgent:
			snap.Settings.Agent = value
		case settingLockDurationMs:
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, value, err)
			}
			snap.Settings.LockDuration = time.Duration(ms) * time.Millisecond
			snap.LockDurationSet = true
		case settingNextAllocationId:
			next, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, value, err)
			}
			snap.NextAllocationId = next
		default:
			zap.L().Warn("Ignoring unknown setting", zap.String("key", key))
		}
	}
	return rows.Err()
}

// GetLedgerEntries returns stored balances, optionally for a single account.
func (s *Service) GetLedgerEntries(ctx context.Context, account string) ([]models.LedgerEntry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if account == "" {
		rows, err = s.db.QueryContext(ctx, queryGetLedgerEntries)
	} else {
		rows, err = s.db.QueryContext(ctx, queryGetLedgerEntriesByAccount, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var entries []models.LedgerEntry
	for rows.Next() {
		var namespace, externalId, acct, balance string
		if err := rows.Scan(&namespace, &externalId, &acct, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e := models.LedgerEntry{Namespace: models.Namespace(namespace), Key: models.DepositKey{Account: acct}}
		if e.Key.ExternalId, err = amount.Parse(externalId); err != nil {
			return nil, fmt.Errorf("invalid external id for %s: %w", acct, err)
		}
		if e.Balance, err = amount.Parse(balance); err != nil {
			return nil, fmt.Errorf("invalid balance for %s: %w", acct, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetAllocations returns every stored allocation with its positions and
// transfers, ordered by id.
func (s *Service) GetAllocations(ctx context.Context) ([]models.CapitalAllocation, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllocations)
	if err != nil {
		return nil, fmt.Errorf("failed to query capital allocations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var allocations []models.CapitalAllocation
	index := map[uint64]int{}
	for rows.Next() {
		var (
			id                       int64
			owner, status            string
			entryMs, exitMs          int64
			entryAsset, entryAmount  string
			exitAsset, exitAmountStr sql.NullString
		)
		if err := rows.Scan(&id, &owner, &status, &entryMs, &exitMs, &entryAsset, &entryAmount, &exitAsset, &exitAmountStr); err != nil {
			return nil, fmt.Errorf("failed to scan capital allocation: %w", err)
		}

		a := models.CapitalAllocation{
			Id:             uint64(id),
			Owner:          owner,
			Status:         models.AllocationStatus(status),
			Positions:      []models.AssetPosition{},
			EntryTimestamp: time.UnixMilli(entryMs).UTC(),
			ExitTimestamp:  time.UnixMilli(exitMs).UTC(),
			EntryValue:     models.AssetPosition{AssetId: entryAsset},
		}
		if a.EntryValue.Amount, err = amount.Parse(entryAmount); err != nil {
			return nil, fmt.Errorf("invalid entry amount for capital allocation %d: %w", id, err)
		}
		if exitAsset.Valid && exitAmountStr.Valid {
			exitAmount, err := amount.Parse(exitAmountStr.String)
			if err != nil {
				return nil, fmt.Errorf("invalid exit amount for capital allocation %d: %w", id, err)
			}
			a.ExitValue = &models.AssetPosition{AssetId: exitAsset.String, Amount: exitAmount}
		}

		index[a.Id] = len(allocations)
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadPositions(ctx, allocations, index); err != nil {
		return nil, err
	}
	if err := s.loadTransfers(ctx, allocations, index); err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *Service) loadPositions(ctx context.Context, allocations []models.CapitalAllocation, index map[uint64]int) error {
	rows, err := s.db.QueryContext(ctx, queryGetPositions)
	if err != nil {
		return fmt.Errorf("failed to query positions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	for rows.Next() {
		var (
			allocationId   int64
			assetId, value string
		)
		if err := rows.Scan(&allocationId, &assetId, &value); err != nil {
			return fmt.Errorf("failed to scan position: %w", err)
		}
		i, ok := index[uint64(allocationId)]
		if !ok {
			zap.L().Warn("Orphan position row", zap.Int64("allocation_id", allocationId))
			continue
		}
		amt, err := amount.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid position amount for capital allocation %d: %w", allocationId, err)
		}
		allocations[i].Positions = append(allocations[i].Positions, models.AssetPosition{AssetId: assetId, Amount: amt})
	}
	return rows.Err()
}

func (s *Service) loadTransfers(ctx context.Context, allocations []models.CapitalAllocation, index map[uint64]int) error {
	rows, err := s.db.QueryContext(ctx, queryGetTransfers)
	if err != nil {
		return fmt.Errorf("failed to query transfers: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	for rows.Next() {
		var (
			t                               models.TransferRecord
			kind, status, amountStr, feeStr string
			allocationId, budget, issuedMs  int64
		)
		if err := rows.Scan(&t.Id, &kind, &allocationId, &t.Receiver, &t.AssetId, &amountStr, &feeStr,
			&budget, &status, &t.Detail, &issuedMs); err != nil {
			return fmt.Errorf("failed to scan transfer: %w", err)
		}
		i, ok := index[uint64(allocationId)]
		if !ok {
			zap.L().Warn("Orphan transfer row", zap.String("transfer_id", t.Id))
			continue
		}
		if t.Amount, err = amount.Parse(amountStr); err != nil {
			return fmt.Errorf("invalid amount for transfer %s: %w", t.Id, err)
		}
		if t.Fee, err = amount.Parse(feeStr); err != nil {
			return fmt.Errorf("invalid fee for transfer %s: %w", t.Id, err)
		}
		t.Kind = models.TransferKind(kind)
		t.Status = models.TransferStatus(status)
		t.AllocationId = uint64(allocationId)
		t.ComputeBudget = uint64(budget)
		t.IssuedAt = time.UnixMilli(issuedMs).UTC()
		allocations[i].Transfers = append(allocations[i].Transfers, t)
	}
	return rows.Err()
}

// GetLeaderboard returns both stored lists in rank order.
func (s *Service) GetLeaderboard(ctx context.Context) (profit, loss []models.LeaderboardItem, err error) {
	rows, err := s.db.QueryContext(ctx, queryGetLeaderboard)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	for rows.Next() {
		var (
			list, account, value string
			allocationId         int64
		)
		if err := rows.Scan(&list, &account, &value, &allocationId); err != nil {
			return nil, nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		v, err := amount.Parse(value)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid leaderboard value: %w", err)
		}
		item := models.LeaderboardItem{Account: account, Value: v, AllocationId: uint64(allocationId)}
		if list == listProfit {
			profit = append(profit, item)
		} else {
			loss = append(loss, item)
		}
	}
	return profit, loss, rows.Err()
}
