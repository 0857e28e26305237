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

package exchange

import (
	"context"
	"errors"
	"fmt"

	"server-market-go/internal/database"
	"server-market-go/internal/gateway"
	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotCurrency      = errors.New("item is not a currency item")
	ErrNotRepresentable = errors.New("amount cannot be paid out in currency items")
)

// Payout is a stack of one currency item handed out by Withdraw.
type Payout struct {
	Item  models.Item
	Count int64
	Value decimal.Decimal
}

// Exchange converts physical currency items to balance and back, using the
// item-to-value table. Money enters and leaves through the system account.
type Exchange struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Exchange {
	return &Exchange{gw: gw}
}

// DepositItems credits count units of a currency item and returns the amount credited.
func (e *Exchange) DepositItems(p models.Party, item models.Item, count int64) *gateway.Future[decimal.Decimal] {
	return gateway.Submit(e.gw, "exchange deposit", func(ctx context.Context, tx *database.Tx) (decimal.Decimal, error) {
		if count <= 0 {
			return decimal.Zero, database.ErrInvalidQuantity
		}
		value, ok, err := tx.Currency().ValueOf(ctx, item)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrNotCurrency, item)
		}

		valueMinor, err := money.ToMinor(value)
		if err != nil {
			return decimal.Zero, err
		}
		creditMinor, err := money.MulMinor(valueMinor, count)
		if err != nil {
			return decimal.Zero, err
		}
		credit := money.FromMinor(creditMinor)
		if err := tx.Ledger().Transfer(ctx, models.System, p, credit); err != nil {
			return decimal.Zero, err
		}
		if _, err := tx.History().Append(ctx, models.System, p, credit, fmt.Sprintf("Exchanged %d x %s", count, item)); err != nil {
			return decimal.Zero, err
		}

		zap.L().Info("Currency items deposited",
			zap.String("account", p.Key()),
			zap.String("item", item.String()),
			zap.Int64("count", count),
			zap.String("credit", credit.StringFixed(2)))
		return credit, nil
	})
}

// Withdraw debits as much of amount as the currency items can represent and
// returns the items to hand out, largest denomination first.
func (e *Exchange) Withdraw(p models.Party, amount decimal.Decimal) *gateway.Future[[]Payout] {
	return gateway.Submit(e.gw, "exchange withdraw", func(ctx context.Context, tx *database.Tx) ([]Payout, error) {
		requested, err := money.ToMinor(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", database.ErrInvalidAmount, err)
		}
		if requested <= 0 {
			return nil, database.ErrInvalidAmount
		}
		items, err := tx.Currency().All(ctx)
		if err != nil {
			return nil, err
		}

		payouts, remainder := Breakdown(items, requested)
		paid := requested - remainder
		if paid == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotRepresentable, money.FormatMinor(requested))
		}

		debit := money.FromMinor(paid)
		if err := tx.Ledger().Transfer(ctx, p, models.System, debit); err != nil {
			return nil, err
		}
		if _, err := tx.History().Append(ctx, p, models.System, debit, "Withdrew currency items"); err != nil {
			return nil, err
		}

		zap.L().Info("Currency items withdrawn",
			zap.String("account", p.Key()),
			zap.String("debit", debit.StringFixed(2)),
			zap.String("remainder", money.FormatMinor(remainder)))
		return payouts, nil
	})
}

// Rates lists the currency items and their values.
func (e *Exchange) Rates() *gateway.Future[[]models.CurrencyItem] {
	return gateway.Submit(e.gw, "exchange rates", func(ctx context.Context, tx *database.Tx) ([]models.CurrencyItem, error) {
		return tx.Currency().All(ctx)
	})
}

// Breakdown greedily splits amountMinor into currency items, which must be
// ordered by descending value. It returns the part that could not be covered.
func Breakdown(items []models.CurrencyItem, amountMinor int64) ([]Payout, int64) {
	var payouts []Payout
	remaining := amountMinor
	for _, item := range items {
		if item.ValueMinor <= 0 || remaining < item.ValueMinor {
			continue
		}
		count := remaining / item.ValueMinor
		remaining -= count * item.ValueMinor
		payouts = append(payouts, Payout{Item: item.Item, Count: count, Value: item.Value()})
	}
	return payouts, remaining
}
