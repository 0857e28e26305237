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
	"strings"

	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog stores system and player sell listings keyed by (item, variant, seller).
type Catalog struct {
	q sqlx.ExtContext
}

func NewCatalog(q sqlx.ExtContext) *Catalog {
	return &Catalog{q: q}
}

// SearchFilter narrows Search. Variant and Seller are optional.
type SearchFilter struct {
	ItemId  string
	Variant *string
	Seller  *models.Party
}

// ListForSystem returns the system listings of an item, cheapest first.
func (c *Catalog) ListForSystem(ctx context.Context, itemId string) ([]models.Listing, error) {
	return c.ListForSeller(ctx, itemId, models.System)
}

// ListForSeller returns one seller's listings of an item, cheapest first.
func (c *Catalog) ListForSeller(ctx context.Context, itemId string, seller models.Party) ([]models.Listing, error) {
	var listings []models.Listing
	if err := sqlx.SelectContext(ctx, c.q, &listings, queryListForSeller, itemId, seller); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// Search returns system and player listings for an item in ascending price
// order. Buyers are always filled from the front of this slice.
func (c *Catalog) Search(ctx context.Context, f SearchFilter) ([]models.Listing, error) {
	var sb strings.Builder
	sb.WriteString(querySearchListings)
	args := []any{f.ItemId}
	if f.Variant != nil {
		sb.WriteString(" AND variant = ?")
		args = append(args, *f.Variant)
	}
	if f.Seller != nil {
		sb.WriteString(" AND seller = ?")
		args = append(args, *f.Seller)
	}
	sb.WriteString(listingOrder)

	var listings []models.Listing
	if err := sqlx.SelectContext(ctx, c.q, &listings, sb.String(), args...); err != nil {
		zap.L().Error("Failed to search listings", zap.String("item", f.ItemId), zap.Error(err))
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, nil
}

// Get returns a single listing or ErrListingNotFound.
func (c *Catalog) Get(ctx context.Context, seller models.Party, item models.Item) (*models.Listing, error) {
	var listing models.Listing
	err := sqlx.GetContext(ctx, c.q, &listing, queryGetListing, item.Id, item.Variant, seller)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s by %s", ErrListingNotFound, item, seller)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// All returns every listing for display.
func (c *Catalog) All(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if err := sqlx.SelectContext(ctx, c.q, &listings, queryAllListings); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// Offer creates a player listing with zero quantity or reprices an existing
// one. Quantity is only changed through Restock.
func (c *Catalog) Offer(ctx context.Context, seller models.Party, item models.Item, price decimal.Decimal) error {
	if seller.IsSystem() {
		return fmt.Errorf("%w: use OfferSystem", ErrPlayerOnly)
	}
	priceMinor, err := money.ToMinor(price)
	if err != nil || priceMinor <= 0 {
		return ErrInvalidPrice
	}
	if _, err := c.q.ExecContext(ctx, queryOfferListing, item.Id, item.Variant, seller, priceMinor); err != nil {
		return fmt.Errorf("failed to offer listing: %w", err)
	}
	zap.L().Info("Listing offered",
		zap.String("seller", seller.Key()),
		zap.String("item", item.String()),
		zap.String("price", money.FormatMinor(priceMinor)))
	return nil
}

// OfferSystem creates or replaces a system listing. quantity may be
// models.UnlimitedQuantity; dailyLimit caps purchases per buyer per day.
func (c *Catalog) OfferSystem(ctx context.Context, item models.Item, price decimal.Decimal, quantity int64, dailyLimit *int64) error {
	priceMinor, err := money.ToMinor(price)
	if err != nil || priceMinor <= 0 {
		return ErrInvalidPrice
	}
	if quantity < 0 && quantity != models.UnlimitedQuantity {
		return ErrNegativeQuantity
	}
	limit := sql.NullInt64{}
	if dailyLimit != nil {
		limit = sql.NullInt64{Int64: *dailyLimit, Valid: true}
	}
	if _, err := c.q.ExecContext(ctx, queryOfferSystemListing, item.Id, item.Variant, priceMinor, quantity, limit); err != nil {
		return fmt.Errorf("failed to offer system listing: %w", err)
	}
	return nil
}

// Restock applies delta to a listing's quantity. Player quantities never drop
// below zero; unlimited system listings are left untouched.
func (c *Catalog) Restock(ctx context.Context, seller models.Party, item models.Item, delta int64) error {
	listing, err := c.Get(ctx, seller, item)
	if err != nil {
		return err
	}
	if listing.IsUnlimited() || delta == 0 {
		return nil
	}
	result, err := c.q.ExecContext(ctx, queryRestockListing, delta, item.Id, item.Variant, seller, delta)
	if err != nil {
		return fmt.Errorf("failed to restock listing: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s has %d, delta %d", ErrNegativeQuantity, item, listing.Quantity, delta)
	}
	return nil
}

// Take consumes amount units from a listing inside a trade. A player listing
// that reaches zero is removed; system listings stay for restocking.
func (c *Catalog) Take(ctx context.Context, seller models.Party, item models.Item, amount int64) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	if err := c.Restock(ctx, seller, item, -amount); err != nil {
		return err
	}
	if seller.IsSystem() {
		return nil
	}
	listing, err := c.Get(ctx, seller, item)
	if err != nil {
		return err
	}
	if listing.Quantity == 0 {
		if _, err := c.q.ExecContext(ctx, queryDeleteListing, item.Id, item.Variant, seller); err != nil {
			return fmt.Errorf("failed to remove sold out listing: %w", err)
		}
	}
	return nil
}

// Delist removes a listing and returns the quantity it still held so the
// caller can hand it back to the seller.
func (c *Catalog) Delist(ctx context.Context, seller models.Party, item models.Item) (int64, error) {
	listing, err := c.Get(ctx, seller, item)
	if err != nil {
		return 0, err
	}
	if _, err := c.q.ExecContext(ctx, queryDeleteListing, item.Id, item.Variant, seller); err != nil {
		return 0, fmt.Errorf("failed to delete listing: %w", err)
	}
	zap.L().Info("Listing removed",
		zap.String("seller", seller.Key()),
		zap.String("item", item.String()),
		zap.Int64("returned_quantity", listing.Quantity))
	return listing.Quantity, nil
}
