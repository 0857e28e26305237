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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Player name (required)")
	idFlag := flag.String("id", "", "Player account id (default: random)")
	balanceFlag := flag.String("balance", "", "Opening balance (optional)")
	flag.Parse()

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}

	id := uuid.New()
	if *idFlag != "" {
		parsed, err := uuid.Parse(*idFlag)
		if err != nil {
			zap.L().Fatal("Invalid account id", zap.String("id", *idFlag), zap.Error(err))
		}
		id = parsed
	}
	player := models.Player(id)
	if err := player.Validate(); err != nil {
		zap.L().Fatal("Invalid account id", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg, nil, nil)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	zap.L().Info("Registering player", zap.String("id", player.Key()), zap.String("name", *nameFlag))
	if err := services.Market.Register(ctx, player, *nameFlag); err != nil {
		zap.L().Fatal("Failed to register player", zap.Error(err))
	}

	if *balanceFlag != "" {
		amount, err := money.Parse(*balanceFlag)
		if err != nil {
			zap.L().Fatal("Invalid opening balance", zap.String("balance", *balanceFlag), zap.Error(err))
		}
		if err := services.Market.SetBalance(ctx, player, amount); err != nil {
			zap.L().Fatal("Failed to set opening balance", zap.Error(err))
		}
	}

	balance, err := services.Market.GetBalance(ctx, player)
	if err != nil {
		zap.L().Fatal("Failed to read balance", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("PLAYER REGISTERED", common.DefaultWidth)
	fmt.Printf("ID:      %s\n", player.Key())
	fmt.Printf("Name:    %s\n", *nameFlag)
	fmt.Printf("Balance: %s\n", common.FormatAmount(balance))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
