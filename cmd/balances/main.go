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

package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"custody-capital-go/internal/common"
	"custody-capital-go/internal/config"
	"custody-capital-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts int
	totalEntries  int
	nonZero       int
}

type reporter struct {
	assets  common.AssetRegistry
	custody models.CustodyConfig
}

func (r reporter) assetFor(ns models.Namespace) string {
	if ns == models.NamespaceNative {
		return r.custody.NativeAsset
	}
	return r.custody.StableAsset
}

func (r reporter) printEntry(entry models.LedgerEntry, isLast bool) {
	assetId := r.assetFor(entry.Namespace)
	fmt.Printf("%s %-8s ext_id %-12s: %30s\n",
		common.BoxPrefix(isLast),
		entry.Namespace,
		entry.Key.ExternalId.String(),
		r.assets.FormatHolding(assetId, entry.Balance))
}

func groupByAccount(entries []models.LedgerEntry) ([]string, map[string][]models.LedgerEntry) {
	grouped := make(map[string][]models.LedgerEntry)
	for _, e := range entries {
		grouped[e.Key.Account] = append(grouped[e.Key.Account], e)
	}

	accounts := make([]string, 0, len(grouped))
	for account := range grouped {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts, grouped
}

func (r reporter) report(entries []models.LedgerEntry) balanceStats {
	stats := balanceStats{}
	accounts, grouped := groupByAccount(entries)

	for _, account := range accounts {
		rows := grouped[account]
		stats.totalAccounts++
		stats.totalEntries += len(rows)

		common.PrintSection("Account", account, len(rows), common.DefaultWidth)
		for i, entry := range rows {
			if !entry.Balance.IsZero() {
				stats.nonZero++
			}
			r.printEntry(entry, i == len(rows)-1)
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by depositor account (optional)")
	flag.Parse()

	logger.Info("Starting ledger balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	assets, err := common.LoadAssetRegistry(cfg.Transfer.AssetsFile)
	if err != nil {
		logger.Fatal("Failed to load asset registry", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	entries, err := dbService.GetLedgerEntries(ctx, *accountFlag)
	if err != nil {
		logger.Fatal("Failed to load ledger entries", zap.Error(err))
	}

	common.PrintHeader("DEPOSIT LEDGER REPORT", common.DefaultWidth)

	stats := reporter{assets: assets, custody: cfg.Custody}.report(entries)

	summary := fmt.Sprintf("SUMMARY: %d accounts, %d entries (%d with non-zero balance)",
		stats.totalAccounts, stats.totalEntries, stats.nonZero)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Ledger balance query completed",
		zap.Int("accounts", stats.totalAccounts),
		zap.Int("entries", stats.totalEntries),
		zap.Int("non_zero", stats.nonZero))
}
