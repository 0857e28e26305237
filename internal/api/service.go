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

package api

import (
	"context"
	"fmt"

	"server-market-go/internal/database"
	"server-market-go/internal/exchange"
	"server-market-go/internal/gateway"
	"server-market-go/internal/market"
	"server-market-go/internal/models"
)

// MarketService is the surface offered to command and display layers. Trades
// return futures; administrative calls block until their unit has run.
type MarketService struct {
	gw        *gateway.Gateway
	coord     *market.Coordinator
	exchange  *exchange.Exchange
	dispenser market.Dispenser
	// exec is where follow-up work such as granting items runs.
	exec gateway.Executor
}

func NewMarketService(gw *gateway.Gateway, coord *market.Coordinator, ex *exchange.Exchange, dispenser market.Dispenser, exec gateway.Executor) *MarketService {
	if dispenser == nil {
		dispenser = market.LogDispenser{}
	}
	if exec == nil {
		exec = gateway.Background
	}
	return &MarketService{
		gw:        gw,
		coord:     coord,
		exchange:  ex,
		dispenser: dispenser,
		exec:      exec,
	}
}

func (s *MarketService) HealthCheck(ctx context.Context) error {
	_, err := gateway.Submit(s.gw, "health check", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		_, err := tx.Ledger().GetBalance(ctx, models.System)
		return struct{}{}, err
	}).Wait(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Register records a display name for a player account.
func (s *MarketService) Register(ctx context.Context, p models.Party, name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	_, err := gateway.Submit(s.gw, "register", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		return struct{}{}, tx.Ledger().Register(ctx, p, name)
	}).Wait(ctx)
	return err
}
