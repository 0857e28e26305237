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

package market

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

// Coordinator runs multi-step trades as single units of work on the gateway.
// Every read that feeds a decision happens in the same unit as the writes it
// leads to.
type Coordinator struct {
	gw    *gateway.Gateway
	clock Clock
}

func NewCoordinator(gw *gateway.Gateway, clock Clock) *Coordinator {
	return &Coordinator{gw: gw, clock: clock}
}

type PurchaseRequest struct {
	Buyer    models.Party
	ItemId   string
	Variant  *string
	Quantity int64
	// Seller restricts the purchase to one seller's listings.
	Seller *models.Party
}

type SellRequest struct {
	Seller   models.Party
	Item     models.Item
	Quantity int64
	// Buyer restricts the sale to one buyer's order.
	Buyer *models.Party
}

type TransferRequest struct {
	From        models.Party
	To          models.Party
	Amount      decimal.Decimal
	Description string
}

type ListRequest struct {
	Seller   models.Party
	Item     models.Item
	Price    decimal.Decimal
	Quantity int64
}

type OrderRequest struct {
	Buyer  models.Party
	Item   models.Item
	Price  decimal.Decimal
	Target int64
}

// SeedSummary counts what ApplySeed wrote.
type SeedSummary struct {
	Currency int
	Listings int
	Orders   int
}

// submit runs fn on the gateway and turns a returned error into a Failure
// value on the future. The error stays on the future as well.
func submit[T any](c *Coordinator, name string, fn func(ctx context.Context, tx *database.Tx) (T, error)) *gateway.Future[T] {
	return gateway.Catch(gateway.Submit(c.gw, name, fn), func(err error) T {
		zap.L().Error("Market operation failed", zap.String("operation", name), zap.Error(err))
		result, _ := any(Failure{Message: err.Error()}).(T)
		return result
	})
}

// Purchase buys Quantity units from the cheapest listings first.
func (c *Coordinator) Purchase(req PurchaseRequest) *gateway.Future[PurchaseResult] {
	return submit(c, "purchase", func(ctx context.Context, tx *database.Tx) (PurchaseResult, error) {
		return c.purchase(ctx, tx, req)
	})
}

func (c *Coordinator) purchase(ctx context.Context, tx *database.Tx, req PurchaseRequest) (PurchaseResult, error) {
	if req.Buyer.IsSystem() {
		return Failure{Message: database.ErrPlayerOnly.Error()}, nil
	}
	if err := req.Buyer.Validate(); err != nil {
		return Failure{Message: err.Error()}, nil
	}
	if req.Quantity <= 0 {
		return Failure{Message: database.ErrInvalidQuantity.Error()}, nil
	}

	listings, err := tx.Catalog().Search(ctx, database.SearchFilter{
		ItemId:  req.ItemId,
		Variant: req.Variant,
		Seller:  req.Seller,
	})
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return NotFound{}, nil
	}

	if req.Variant == nil {
		variants := make(map[string]struct{})
		for _, l := range listings {
			variants[l.Variant] = struct{}{}
		}
		if len(variants) > 1 {
			return AmbiguousVariant{Count: len(variants)}, nil
		}
	}

	for _, l := range listings {
		if l.Seller == req.Buyer {
			return CannotBuyOwnItem{}, nil
		}
	}

	today := c.clock.Today()
	quota := tx.Quota()
	candidates := make([]Candidate, 0, len(listings))
	for _, l := range listings {
		var consumed int64
		if l.Seller.IsSystem() && l.DailyLimit.Valid {
			consumed, err = quota.Consumed(ctx, today, req.Buyer, l.Item, models.QuotaBuy)
			if err != nil {
				return nil, err
			}
		}
		available, limited := Availability(l, consumed)
		candidates = append(candidates, Candidate{Listing: l, Available: available, Limited: limited})
	}

	if total := Fulfillable(candidates); total < req.Quantity {
		if LimitBound(candidates) {
			return LimitExceeded{Remaining: total}, nil
		}
		return InsufficientStock{Available: total}, nil
	}

	plan, err := BuildPlan(candidates, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to plan purchase: %w", err)
	}
	totalCost := money.FromMinor(plan.TotalCostMinor)

	ledger := tx.Ledger()
	balance, err := ledger.GetBalance(ctx, req.Buyer)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(totalCost) {
		return InsufficientFunds{Required: totalCost}, nil
	}

	if err := c.executePurchase(ctx, tx, req.Buyer, plan, today); err != nil {
		if errors.Is(err, database.ErrInsufficientFunds) {
			return InsufficientFunds{Required: totalCost}, nil
		}
		return nil, err
	}

	zap.L().Info("Purchase completed",
		zap.String("buyer", req.Buyer.Key()),
		zap.String("item", req.ItemId),
		zap.Int64("quantity", plan.Quantity),
		zap.String("total_cost", totalCost.StringFixed(2)),
		zap.Int("sellers", len(plan.Allocations)))

	return PurchaseSuccess{TotalCost: totalCost, Quantity: plan.Quantity, Given: plan.Allocations}, nil
}

func (c *Coordinator) executePurchase(ctx context.Context, tx *database.Tx, buyer models.Party, plan Plan, today string) error {
	ledger := tx.Ledger()
	history := tx.History()
	catalog := tx.Catalog()

	totalCost := money.FromMinor(plan.TotalCostMinor)
	if err := ledger.Transfer(ctx, buyer, models.System, totalCost); err != nil {
		return err
	}
	if _, err := history.Append(ctx, buyer, models.System, totalCost, purchaseDescription(plan)); err != nil {
		return err
	}

	for i, a := range plan.Allocations {
		if err := catalog.Take(ctx, a.Seller, a.Item, a.Quantity); err != nil {
			return err
		}
		if a.Seller.IsSystem() {
			if err := tx.Quota().Increment(ctx, today, buyer, a.Item, models.QuotaBuy, a.Quantity); err != nil {
				return err
			}
			continue
		}

		earnedMinor, err := money.MulMinor(plan.priceMinor[i], a.Quantity)
		if err != nil {
			return err
		}
		earned := money.FromMinor(earnedMinor)
		if err := ledger.Transfer(ctx, models.System, a.Seller, earned); err != nil {
			return err
		}
		description := fmt.Sprintf("Sold %d x %s", a.Quantity, a.Item)
		if _, err := history.Append(ctx, models.System, a.Seller, earned, description); err != nil {
			return err
		}
	}
	return nil
}

func purchaseDescription(plan Plan) string {
	if len(plan.Allocations) == 1 {
		return fmt.Sprintf("Bought %d x %s", plan.Quantity, plan.Allocations[0].Item)
	}
	return fmt.Sprintf("Bought %d x %s from %d sellers", plan.Quantity, plan.Allocations[0].Item, len(plan.Allocations))
}

// SellToBuyer sells up to Quantity units into the best standing order.
func (c *Coordinator) SellToBuyer(req SellRequest) *gateway.Future[SellResult] {
	return submit(c, "sell", func(ctx context.Context, tx *database.Tx) (SellResult, error) {
		return c.sellToBuyer(ctx, tx, req)
	})
}

func (c *Coordinator) sellToBuyer(ctx context.Context, tx *database.Tx, req SellRequest) (SellResult, error) {
	if req.Seller.IsSystem() {
		return Failure{Message: database.ErrPlayerOnly.Error()}, nil
	}
	if err := req.Seller.Validate(); err != nil {
		return Failure{Message: err.Error()}, nil
	}
	if req.Quantity <= 0 {
		return Failure{Message: database.ErrInvalidQuantity.Error()}, nil
	}

	order, err := c.bestOrder(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return NotFound{}, nil
	}

	today := c.clock.Today()
	amount := req.Quantity
	if order.Buyer.IsSystem() {
		if order.DailyLimit.Valid {
			sold, err := tx.Quota().Consumed(ctx, today, req.Seller, req.Item, models.QuotaSell)
			if err != nil {
				return nil, err
			}
			amount = min(amount, order.DailyLimit.Int64-sold)
		}
	} else {
		amount = min(amount, order.Remaining())
	}
	if amount <= 0 {
		return LimitExceeded{Remaining: 0}, nil
	}

	totalMinor, err := money.MulMinor(order.PriceMinor, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to price sale: %w", err)
	}
	total := money.FromMinor(totalMinor)

	ledger := tx.Ledger()
	if !order.Buyer.IsSystem() {
		balance, err := ledger.GetBalance(ctx, order.Buyer)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(total) {
			return InsufficientFunds{Required: total}, nil
		}
	}

	if err := ledger.Transfer(ctx, order.Buyer, req.Seller, total); err != nil {
		if errors.Is(err, database.ErrInsufficientFunds) {
			return InsufficientFunds{Required: total}, nil
		}
		return nil, err
	}

	if order.Buyer.IsSystem() {
		if err := tx.Quota().Increment(ctx, today, req.Seller, req.Item, models.QuotaSell, amount); err != nil {
			return nil, err
		}
	} else {
		if err := tx.Orders().Fill(ctx, order.Buyer, req.Item, amount); err != nil {
			return nil, err
		}
		if err := tx.Parcels().Deposit(ctx, order.Buyer, req.Item, amount, "Purchase order filled"); err != nil {
			return nil, err
		}
	}

	description := fmt.Sprintf("Sold %d x %s", amount, req.Item)
	if _, err := tx.History().Append(ctx, order.Buyer, req.Seller, total, description); err != nil {
		return nil, err
	}

	zap.L().Info("Sale completed",
		zap.String("seller", req.Seller.Key()),
		zap.String("buyer", order.Buyer.Key()),
		zap.String("item", req.Item.String()),
		zap.Int64("amount", amount),
		zap.String("total_earned", total.StringFixed(2)))

	return SellSuccess{Amount: amount, TotalEarned: total, Buyer: order.Buyer, Item: req.Item}, nil
}

// bestOrder prefers the system order when the filter allows it, then the
// highest priced open player order that is not the seller's own.
func (c *Coordinator) bestOrder(ctx context.Context, tx *database.Tx, req SellRequest) (*models.PurchaseOrder, error) {
	orders := tx.Orders()
	if req.Buyer == nil || req.Buyer.IsSystem() {
		order, err := orders.SystemOrderFor(ctx, req.Item)
		if err != nil || order != nil || req.Buyer != nil {
			return order, err
		}
	}

	open, err := orders.OrdersFor(ctx, req.Item)
	if err != nil {
		return nil, err
	}
	for i := range open {
		if open[i].Buyer == req.Seller {
			continue
		}
		if req.Buyer != nil && open[i].Buyer != *req.Buyer {
			continue
		}
		return &open[i], nil
	}
	return nil, nil
}

// Transfer pays another player directly.
func (c *Coordinator) Transfer(req TransferRequest) *gateway.Future[TransferResult] {
	return submit(c, "transfer", func(ctx context.Context, tx *database.Tx) (TransferResult, error) {
		if req.From.IsSystem() {
			return Failure{Message: database.ErrPlayerOnly.Error()}, nil
		}
		if err := req.From.Validate(); err != nil {
			return Failure{Message: err.Error()}, nil
		}
		if err := req.To.Validate(); err != nil {
			return Failure{Message: err.Error()}, nil
		}
		if req.From == req.To {
			return Failure{Message: "cannot pay yourself"}, nil
		}

		amount, err := money.Round(req.Amount)
		if err != nil {
			return Failure{Message: err.Error()}, nil
		}
		ledger := tx.Ledger()
		if err := ledger.Transfer(ctx, req.From, req.To, amount); err != nil {
			switch {
			case errors.Is(err, database.ErrInsufficientFunds):
				return InsufficientFunds{Required: amount}, nil
			case errors.Is(err, database.ErrInvalidAmount):
				return Failure{Message: err.Error()}, nil
			}
			return nil, err
		}

		description := req.Description
		if description == "" {
			description = "Payment"
		}
		if _, err := tx.History().Append(ctx, req.From, req.To, amount, description); err != nil {
			return nil, err
		}

		balance, err := ledger.GetBalance(ctx, req.From)
		if err != nil {
			return nil, err
		}
		return TransferSuccess{Amount: amount, Balance: balance}, nil
	})
}

// ListItem offers an item for sale and adds Quantity units to the listing.
func (c *Coordinator) ListItem(req ListRequest) *gateway.Future[*models.Listing] {
	return submit(c, "list item", func(ctx context.Context, tx *database.Tx) (*models.Listing, error) {
		if req.Quantity < 0 {
			return nil, database.ErrInvalidQuantity
		}
		catalog := tx.Catalog()
		if err := catalog.Offer(ctx, req.Seller, req.Item, req.Price); err != nil {
			return nil, err
		}
		if req.Quantity > 0 {
			if err := catalog.Restock(ctx, req.Seller, req.Item, req.Quantity); err != nil {
				return nil, err
			}
		}
		return catalog.Get(ctx, req.Seller, req.Item)
	})
}

// Delist removes a listing and returns the quantity to hand back to the seller.
func (c *Coordinator) Delist(seller models.Party, item models.Item) *gateway.Future[int64] {
	return submit(c, "delist", func(ctx context.Context, tx *database.Tx) (int64, error) {
		return tx.Catalog().Delist(ctx, seller, item)
	})
}

// PostOrder creates or updates a player's standing purchase order.
func (c *Coordinator) PostOrder(req OrderRequest) *gateway.Future[*models.PurchaseOrder] {
	return submit(c, "post order", func(ctx context.Context, tx *database.Tx) (*models.PurchaseOrder, error) {
		orders := tx.Orders()
		if err := orders.Post(ctx, req.Buyer, req.Item, req.Price, req.Target); err != nil {
			return nil, err
		}
		return orders.Get(ctx, req.Buyer, req.Item)
	})
}

// CancelOrder removes a purchase order and returns it with its fill progress.
func (c *Coordinator) CancelOrder(buyer models.Party, item models.Item) *gateway.Future[*models.PurchaseOrder] {
	return submit(c, "cancel order", func(ctx context.Context, tx *database.Tx) (*models.PurchaseOrder, error) {
		return tx.Orders().Cancel(ctx, buyer, item)
	})
}

// ApplySeed writes the system listings, system orders and currency items of a
// catalog file in one unit. A bad entry aborts the whole seed.
func (c *Coordinator) ApplySeed(seed models.CatalogSeed) *gateway.Future[SeedSummary] {
	return submit(c, "apply seed", func(ctx context.Context, tx *database.Tx) (SeedSummary, error) {
		var summary SeedSummary

		for i, entry := range seed.Currency {
			value, err := money.Parse(entry.Value)
			if err != nil {
				return summary, fmt.Errorf("currency %d (%s): %w", i, entry.Item, err)
			}
			if err := tx.Currency().SetValue(ctx, models.Item{Id: entry.Item, Variant: entry.Variant}, value); err != nil {
				return summary, fmt.Errorf("currency %d (%s): %w", i, entry.Item, err)
			}
			summary.Currency++
		}

		for i, entry := range seed.Listings {
			price, err := money.Parse(entry.Price)
			if err != nil {
				return summary, fmt.Errorf("listing %d (%s): %w", i, entry.Item, err)
			}
			quantity := models.UnlimitedQuantity
			if entry.Quantity != nil {
				quantity = *entry.Quantity
			}
			item := models.Item{Id: entry.Item, Variant: entry.Variant}
			if err := tx.Catalog().OfferSystem(ctx, item, price, quantity, entry.DailyLimit); err != nil {
				return summary, fmt.Errorf("listing %d (%s): %w", i, entry.Item, err)
			}
			summary.Listings++
		}

		for i, entry := range seed.Orders {
			price, err := money.Parse(entry.Price)
			if err != nil {
				return summary, fmt.Errorf("order %d (%s): %w", i, entry.Item, err)
			}
			item := models.Item{Id: entry.Item, Variant: entry.Variant}
			if err := tx.Orders().PostSystem(ctx, item, price, entry.DailyLimit); err != nil {
				return summary, fmt.Errorf("order %d (%s): %w", i, entry.Item, err)
			}
			summary.Orders++
		}

		zap.L().Info("Catalog seed applied",
			zap.Int("currency_items", summary.Currency),
			zap.Int("listings", summary.Listings),
			zap.Int("orders", summary.Orders))
		return summary, nil
	})
}
