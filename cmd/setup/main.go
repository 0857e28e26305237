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

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	catalogFlag := flag.String("catalog", "", "Catalog file to apply (default: CATALOG_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	catalogFile := cfg.Market.CatalogFile
	if *catalogFlag != "" {
		catalogFile = *catalogFlag
	}

	zap.L().Info("Loading catalog", zap.String("file", catalogFile))
	seed, err := common.LoadCatalogSeed(catalogFile)
	if err != nil {
		zap.L().Fatal("Failed to load catalog", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg, nil, nil)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	summary, err := services.Coordinator.ApplySeed(*seed).Wait(ctx)
	if err != nil {
		zap.L().Fatal("Failed to apply catalog, nothing was written", zap.Error(err))
	}

	rates, err := services.Market.Rates(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read currency table", zap.Error(err))
	}

	common.PrintHeader("CATALOG APPLIED", common.DefaultWidth)
	fmt.Printf("Currency items:  %d\n", summary.Currency)
	fmt.Printf("System listings: %d\n", summary.Listings)
	fmt.Printf("System orders:   %d\n", summary.Orders)
	if len(rates) > 0 {
		common.PrintBoxSeparator(40)
		for i, rate := range rates {
			fmt.Printf("%s %-20s %12s\n", common.BoxPrefix(i == len(rates)-1), rate.Item, common.FormatAmount(rate.Value()))
		}
	}
	common.PrintSeparator("=", common.DefaultWidth)
}
