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
)

// CurrencyTable maps physical items to the balance they are worth.
type CurrencyTable struct {
	q sqlx.ExtContext
}

func NewCurrencyTable(q sqlx.ExtContext) *CurrencyTable {
	return &CurrencyTable{q: q}
}

func (c *CurrencyTable) SetValue(ctx context.Context, item models.Item, value decimal.Decimal) error {
	valueMinor, err := money.ToMinor(value)
	if err != nil || valueMinor <= 0 {
		return ErrInvalidAmount
	}
	if _, err := c.q.ExecContext(ctx, queryUpsertCurrencyItem, item.Id, item.Variant, valueMinor); err != nil {
		return fmt.Errorf("failed to set currency value: %w", err)
	}
	return nil
}

// ValueOf reports the value of one unit of item and whether it is currency at all.
func (c *CurrencyTable) ValueOf(ctx context.Context, item models.Item) (decimal.Decimal, bool, error) {
	var valueMinor int64
	err := c.q.QueryRowxContext(ctx, queryGetCurrencyValue, item.Id, item.Variant).Scan(&valueMinor)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get currency value: %w", err)
	}
	return money.FromMinor(valueMinor), true, nil
}

// All returns every currency item, most valuable first.
func (c *CurrencyTable) All(ctx context.Context) ([]models.CurrencyItem, error) {
	var items []models.CurrencyItem
	if err := sqlx.SelectContext(ctx, c.q, &items, queryGetCurrencyItems); err != nil {
		return nil, fmt.Errorf("failed to list currency items: %w", err)
	}
	return items, nil
}

func (c *CurrencyTable) Remove(ctx context.Context, item models.Item) error {
	if _, err := c.q.ExecContext(ctx, queryDeleteCurrencyItem, item.Id, item.Variant); err != nil {
		return fmt.Errorf("failed to remove currency item: %w", err)
	}
	return nil
}
