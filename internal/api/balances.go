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
	"server-market-go/internal/gateway"
	"server-market-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the current balance of an account
func (s *MarketService) GetBalance(ctx context.Context, p models.Party) (decimal.Decimal, error) {
	balance, err := gateway.Submit(s.gw, "get balance", func(ctx context.Context, tx *database.Tx) (decimal.Decimal, error) {
		return tx.Ledger().GetBalance(ctx, p)
	}).Wait(ctx)
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("account", p.Key()), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance: %w", err)
	}
	return balance, nil
}

// SetBalance overwrites an account balance and records the change in history.
func (s *MarketService) SetBalance(ctx context.Context, p models.Party, amount decimal.Decimal) error {
	_, err := gateway.Submit(s.gw, "set balance", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		ledger := tx.Ledger()
		before, err := ledger.GetBalance(ctx, p)
		if err != nil {
			return struct{}{}, err
		}
		if err := ledger.SetBalance(ctx, p, amount); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, recordAdjustment(ctx, tx, p, amount.Sub(before), "Balance set by admin")
	}).Wait(ctx)
	if err != nil {
		zap.L().Error("Failed to set balance", zap.String("account", p.Key()), zap.Error(err))
		return err
	}
	return nil
}

// AdjustBalance adds a signed delta to an account. Player balances never go
// below zero; a delta that would do so fails with database.ErrInsufficientFunds.
func (s *MarketService) AdjustBalance(ctx context.Context, p models.Party, delta decimal.Decimal) error {
	_, err := gateway.Submit(s.gw, "adjust balance", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := tx.Ledger().Adjust(ctx, p, delta); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, recordAdjustment(ctx, tx, p, delta, "Balance adjusted by admin")
	}).Wait(ctx)
	if err != nil {
		zap.L().Error("Failed to adjust balance",
			zap.String("account", p.Key()),
			zap.String("delta", delta.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// recordAdjustment writes an admin change as a movement between the system
// and the account so history stays complete.
func recordAdjustment(ctx context.Context, tx *database.Tx, p models.Party, delta decimal.Decimal, description string) error {
	if delta.IsZero() || p.IsSystem() {
		return nil
	}
	from, to := models.System, p
	if delta.IsNegative() {
		from, to = p, models.System
	}
	_, err := tx.History().Append(ctx, from, to, delta.Abs(), description)
	return err
}

// Accounts returns every account with its balance, system first
func (s *MarketService) Accounts(ctx context.Context) ([]models.AccountBalance, error) {
	return gateway.Submit(s.gw, "accounts", func(ctx context.Context, tx *database.Tx) ([]models.AccountBalance, error) {
		return tx.Ledger().Accounts(ctx)
	}).Wait(ctx)
}

// GetHistory returns paginated history for an account, newest first
func (s *MarketService) GetHistory(ctx context.Context, p models.Party, limit, offset int) ([]models.HistoryRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := gateway.Submit(s.gw, "history", func(ctx context.Context, tx *database.Tx) ([]models.HistoryRecord, error) {
		return tx.History().For(ctx, p, limit, offset)
	}).Wait(ctx)
	if err != nil {
		zap.L().Error("Failed to get history", zap.String("account", p.Key()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve history: %w", err)
	}
	return records, nil
}
