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

	"server-market-go/internal/common"
	"server-market-go/internal/config"
	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts int
	playerTotal   int64
}

func printHistory(records []models.HistoryRecord) {
	for i, record := range records {
		isLast := i == len(records)-1
		fmt.Printf("%s %s  %-12s -> %-12s %12s\n",
			common.BoxPrefix(isLast),
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			displayName(record.FromName, record.FromId),
			displayName(record.ToName, record.ToId),
			common.FormatAmount(record.Amount()))
		if record.Description != "" {
			fmt.Printf("%s   %s\n", common.BoxDetailPrefix(isLast), record.Description)
		}
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func printAccount(ctx context.Context, services *common.Services, account models.AccountBalance, historyLimit int) {
	fmt.Printf("\n┌─ %s\n", common.FormatParty(account.Account, account.Name))
	fmt.Printf("│  Balance: %s (updated: %s)\n",
		common.FormatAmount(account.Balance()),
		account.UpdatedAt.Format("2006-01-02 15:04:05"))

	if historyLimit <= 0 {
		return
	}
	records, err := services.Market.GetHistory(ctx, account.Account, historyLimit, 0)
	if err != nil {
		zap.L().Error("Failed to get history", zap.String("account", account.Account.Key()), zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}
	common.PrintBoxSeparator(78)
	printHistory(records)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by account id or player name (optional)")
	historyFlag := flag.Int("history", 0, "Show this many recent history records per account")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg, nil, nil)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	accounts, err := common.ResolveAccounts(ctx, services.Market, *accountFlag)
	if err != nil {
		logger.Fatal("Failed to resolve accounts", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, account := range accounts {
		stats.totalAccounts++
		if !account.Account.IsSystem() {
			stats.playerTotal += account.BalanceMinor
		}
		printAccount(ctx, services, account, *historyFlag)
	}

	summary := fmt.Sprintf("SUMMARY: %d accounts, %s held by players",
		stats.totalAccounts, money.FormatMinor(stats.playerTotal))
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed", zap.Int("accounts", stats.totalAccounts))
}
