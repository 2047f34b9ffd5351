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

	"custody-capital-go/internal/common"
	"custody-capital-go/internal/config"
	"custody-capital-go/internal/models"

	"go.uber.org/zap"
)

func printBoard(title string, items []models.LeaderboardItem) {
	common.PrintSection("Board", title, len(items), common.DefaultWidth)
	if len(items) == 0 {
		fmt.Printf("%s (empty)\n", common.BoxPrefix(true))
		return
	}
	for i, item := range items {
		fmt.Printf("%s #%d %-32s %6s%%  (allocation %d)\n",
			common.BoxPrefix(i == len(items)-1),
			i+1,
			item.Account,
			item.Value.String(),
			item.AllocationId)
	}
}

func printAllocations(allocations []models.CapitalAllocation, assets common.AssetRegistry) {
	common.PrintSection("Allocations", "all", len(allocations), common.DefaultWidth)
	for i, a := range allocations {
		isLast := i == len(allocations)-1
		entry := a.EntryValue
		fmt.Printf("%s #%d %s [%s] entry %s, %d positions\n",
			common.BoxPrefix(isLast),
			a.Id,
			a.Owner,
			a.Status,
			assets.FormatHolding(entry.AssetId, entry.Amount),
			len(a.Positions))

		detail := common.BoxDetailPrefix(isLast)
		fmt.Printf("%s    locked %s -> %s\n", detail,
			common.FormatTimestamp(a.EntryTimestamp),
			common.FormatTimestamp(a.ExitTimestamp))
		if a.ExitValue != nil {
			fmt.Printf("%s    exit %s\n", detail,
				assets.FormatHolding(a.ExitValue.AssetId, a.ExitValue.Amount))
		}
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	withAllocations := flag.Bool("allocations", true, "Include the allocation list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	assets, err := common.LoadAssetRegistry(cfg.Transfer.AssetsFile)
	if err != nil {
		logger.Fatal("Failed to load asset registry", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	profit, loss, err := dbService.GetLeaderboard(ctx)
	if err != nil {
		logger.Fatal("Failed to load leaderboard", zap.Error(err))
	}

	common.PrintHeader("SETTLEMENT LEADERBOARD", common.DefaultWidth)
	printBoard("Top profit", profit)
	printBoard("Top loss", loss)

	settled := 0
	total := 0
	if *withAllocations {
		allocations, err := dbService.GetAllocations(ctx)
		if err != nil {
			logger.Fatal("Failed to load allocations", zap.Error(err))
		}
		printAllocations(allocations, assets)
		total = len(allocations)
		for _, a := range allocations {
			if a.Settled() {
				settled++
			}
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d profit, %d loss entries; %d of %d allocations settled",
		len(profit), len(loss), settled, total), common.DefaultWidth)
}
