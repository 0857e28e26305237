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

// Ledger owns account balances. Transfer is only atomic when the Ledger runs
// on a transaction (see Tx.Ledger).
type Ledger struct {
	q sqlx.ExtContext
}

func NewLedger(q sqlx.ExtContext) *Ledger {
	return &Ledger{q: q}
}

// GetBalance returns the balance of p; an account without a row reads as zero.
func (l *Ledger) GetBalance(ctx context.Context, p models.Party) (decimal.Decimal, error) {
	minor, err := l.balanceMinor(ctx, p)
	if err != nil {
		return decimal.Zero, err
	}
	return money.FromMinor(minor), nil
}

func (l *Ledger) balanceMinor(ctx context.Context, p models.Party) (int64, error) {
	var balance int64
	err := l.q.QueryRowxContext(ctx, queryGetBalance, p).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("account", p.Key()), zap.Error(err))
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Deposit adds a positive amount to p, creating the account row if needed.
func (l *Ledger) Deposit(ctx context.Context, p models.Party, amount decimal.Decimal) error {
	minor, err := positiveMinor(amount)
	if err != nil {
		return err
	}
	return l.addMinor(ctx, p, minor)
}

func (l *Ledger) addMinor(ctx context.Context, p models.Party, delta int64) error {
	if _, err := l.q.ExecContext(ctx, queryAddBalance, p, delta); err != nil {
		zap.L().Error("Failed to update balance",
			zap.String("account", p.Key()),
			zap.String("delta", money.FormatMinor(delta)),
			zap.Error(err))
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// WithdrawIfSufficient subtracts amount from p in a single conditional
// statement and reports whether the balance covered it.
func (l *Ledger) WithdrawIfSufficient(ctx context.Context, p models.Party, amount decimal.Decimal) (bool, error) {
	minor, err := positiveMinor(amount)
	if err != nil {
		return false, err
	}
	result, err := l.q.ExecContext(ctx, queryWithdrawIfSufficient, minor, p, minor)
	if err != nil {
		zap.L().Error("Failed to withdraw", zap.String("account", p.Key()), zap.Error(err))
		return false, fmt.Errorf("failed to withdraw: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Transfer moves amount from one party to another. The system account is
// debited unconditionally; any other sender must cover the amount or
// ErrInsufficientFunds is returned and nothing changes.
func (l *Ledger) Transfer(ctx context.Context, from, to models.Party, amount decimal.Decimal) error {
	minor, err := positiveMinor(amount)
	if err != nil {
		return err
	}

	if from.IsSystem() {
		if err := l.addMinor(ctx, from, -minor); err != nil {
			return err
		}
	} else {
		ok, err := l.WithdrawIfSufficient(ctx, from, amount)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s cannot cover %s", ErrInsufficientFunds, from.Key(), money.FormatMinor(minor))
		}
	}

	if err := l.addMinor(ctx, to, minor); err != nil {
		return err
	}

	zap.L().Debug("Transfer applied",
		zap.String("from", from.Key()),
		zap.String("to", to.Key()),
		zap.String("amount", money.FormatMinor(minor)))
	return nil
}

// SetBalance overwrites the balance of p.
func (l *Ledger) SetBalance(ctx context.Context, p models.Party, amount decimal.Decimal) error {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if minor < 0 && !p.IsSystem() {
		return ErrNegativeBalance
	}
	if _, err := l.q.ExecContext(ctx, querySetBalance, p, minor); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	zap.L().Info("Balance set", zap.String("account", p.Key()), zap.String("balance", money.FormatMinor(minor)))
	return nil
}

// Adjust applies a signed delta. Negative deltas on player accounts follow
// WithdrawIfSufficient semantics.
func (l *Ledger) Adjust(ctx context.Context, p models.Party, delta decimal.Decimal) error {
	minor, err := money.ToMinor(delta)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	switch {
	case minor == 0:
		return ErrInvalidAmount
	case minor > 0 || p.IsSystem():
		return l.addMinor(ctx, p, minor)
	}
	ok, err := l.WithdrawIfSufficient(ctx, p, delta.Neg())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	return nil
}

// Register records a display name for p, creating the account if needed.
func (l *Ledger) Register(ctx context.Context, p models.Party, name string) error {
	if _, err := l.q.ExecContext(ctx, queryRegisterAccount, p, name); err != nil {
		return fmt.Errorf("failed to register account: %w", err)
	}
	return nil
}

// Name returns the display name of p, falling back to its key.
func (l *Ledger) Name(ctx context.Context, p models.Party) (string, error) {
	if p.IsSystem() {
		return models.SystemName, nil
	}
	var name string
	err := l.q.QueryRowxContext(ctx, queryGetAccountName, p).Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to get account name: %w", err)
	}
	if name == "" {
		return p.Key(), nil
	}
	return name, nil
}

// Accounts returns every account row, system first.
func (l *Ledger) Accounts(ctx context.Context) ([]models.AccountBalance, error) {
	var accounts []models.AccountBalance
	if err := sqlx.SelectContext(ctx, l.q, &accounts, queryGetAllAccounts); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

// PlayerTotal sums every non-system balance.
func (l *Ledger) PlayerTotal(ctx context.Context) (decimal.Decimal, error) {
	var total int64
	if err := l.q.QueryRowxContext(ctx, querySumPlayerBalances).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return money.FromMinor(total), nil
}

func positiveMinor(amount decimal.Decimal) (int64, error) {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if minor <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	return minor, nil
}
