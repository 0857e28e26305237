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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderBook stores standing purchase orders keyed by (item, variant, buyer).
type OrderBook struct {
	q sqlx.ExtContext
}

func NewOrderBook(q sqlx.ExtContext) *OrderBook {
	return &OrderBook{q: q}
}

// Post creates a player order or updates price and target of an existing
// one, keeping what has already been filled.
func (b *OrderBook) Post(ctx context.Context, buyer models.Party, item models.Item, price decimal.Decimal, target int64) error {
	if buyer.IsSystem() {
		return fmt.Errorf("%w: use PostSystem", ErrPlayerOnly)
	}
	priceMinor, err := money.ToMinor(price)
	if err != nil || priceMinor <= 0 {
		return ErrInvalidPrice
	}
	if target <= 0 {
		return ErrInvalidQuantity
	}

	existing, err := b.Get(ctx, buyer, item)
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return err
	}
	if existing != nil && target < existing.Current {
		return fmt.Errorf("%w: target %d, filled %d", ErrTargetBelowFilled, target, existing.Current)
	}

	if _, err := b.q.ExecContext(ctx, queryUpsertOrder, item.Id, item.Variant, buyer, priceMinor, target, sql.NullInt64{}); err != nil {
		return fmt.Errorf("failed to post order: %w", err)
	}
	zap.L().Info("Purchase order posted",
		zap.String("buyer", buyer.Key()),
		zap.String("item", item.String()),
		zap.String("price", money.FormatMinor(priceMinor)),
		zap.Int64("target", target))
	return nil
}

// PostSystem creates or replaces the system order for an item. System orders
// have no target and are bounded per seller per day by dailyLimit.
func (b *OrderBook) PostSystem(ctx context.Context, item models.Item, price decimal.Decimal, dailyLimit *int64) error {
	priceMinor, err := money.ToMinor(price)
	if err != nil || priceMinor <= 0 {
		return ErrInvalidPrice
	}
	limit := sql.NullInt64{}
	if dailyLimit != nil {
		limit = sql.NullInt64{Int64: *dailyLimit, Valid: true}
	}
	if _, err := b.q.ExecContext(ctx, queryUpsertOrder, item.Id, item.Variant, models.System, priceMinor, models.UnboundedTarget, limit); err != nil {
		return fmt.Errorf("failed to post system order: %w", err)
	}
	return nil
}

// Get returns one order or ErrOrderNotFound.
func (b *OrderBook) Get(ctx context.Context, buyer models.Party, item models.Item) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := sqlx.GetContext(ctx, b.q, &order, queryGetOrder, item.Id, item.Variant, buyer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s by %s", ErrOrderNotFound, item, buyer)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// Cancel deletes an order and returns it as it was.
func (b *OrderBook) Cancel(ctx context.Context, buyer models.Party, item models.Item) (*models.PurchaseOrder, error) {
	order, err := b.Get(ctx, buyer, item)
	if err != nil {
		return nil, err
	}
	if _, err := b.q.ExecContext(ctx, queryDeleteOrder, item.Id, item.Variant, buyer); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	zap.L().Info("Purchase order cancelled",
		zap.String("buyer", buyer.Key()),
		zap.String("item", item.String()),
		zap.Int64("filled", order.Current),
		zap.Int64("target", order.Target))
	return order, nil
}

// OrdersFor returns open player orders for an item, highest price first.
// Completed orders are kept in the table but never returned here.
func (b *OrderBook) OrdersFor(ctx context.Context, item models.Item) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	if err := sqlx.SelectContext(ctx, b.q, &orders, queryOpenPlayerOrders, item.Id, item.Variant); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// SystemOrderFor returns the system order for an item, or nil when there is none.
func (b *OrderBook) SystemOrderFor(ctx context.Context, item models.Item) (*models.PurchaseOrder, error) {
	order, err := b.Get(ctx, models.System, item)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, nil
	}
	return order, err
}

// ForBuyer returns every order placed by buyer, including completed ones.
func (b *OrderBook) ForBuyer(ctx context.Context, buyer models.Party) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	if err := sqlx.SelectContext(ctx, b.q, &orders, queryOrdersForBuyer, buyer); err != nil {
		return nil, fmt.Errorf("failed to list buyer orders: %w", err)
	}
	return orders, nil
}

// All returns every order for display.
func (b *OrderBook) All(ctx context.Context) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	if err := sqlx.SelectContext(ctx, b.q, &orders, queryAllOrders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Fill adds amount to an order's current amount without exceeding its target.
func (b *OrderBook) Fill(ctx context.Context, buyer models.Party, item models.Item, amount int64) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	result, err := b.q.ExecContext(ctx, queryFillOrder, amount, item.Id, item.Variant, buyer, amount)
	if err != nil {
		return fmt.Errorf("failed to fill order: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s by %s, amount %d", ErrOrderOverfilled, item, buyer, amount)
	}
	return nil
}
