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

package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"server-market-go/internal/money"
)

// UnlimitedQuantity marks a system listing that never runs out.
const UnlimitedQuantity int64 = -1

// UnboundedTarget marks a system purchase order with no total target.
const UnboundedTarget int64 = -1

// Item is an item type plus its opaque variant key (e.g. an NBT hash).
type Item struct {
	Id      string `db:"item"`
	Variant string `db:"variant"`
}

func (i Item) String() string {
	if i.Variant == "" {
		return i.Id
	}
	return fmt.Sprintf("%s{%s}", i.Id, i.Variant)
}

// QuotaKind separates the two directions of daily trade with the system.
type QuotaKind string

const (
	QuotaBuy  QuotaKind = "buy"
	QuotaSell QuotaKind = "sell"
)

// AccountBalance represents the current balance of one account
type AccountBalance struct {
	Account      Party     `db:"id"`
	Name         string    `db:"name"`
	BalanceMinor int64     `db:"balance"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (a AccountBalance) Balance() decimal.Decimal { return money.FromMinor(a.BalanceMinor) }

// Listing is a sell offer
type Listing struct {
	Item
	Seller     Party         `db:"seller"`
	PriceMinor int64         `db:"price"`
	Quantity   int64         `db:"quantity"`
	DailyLimit sql.NullInt64 `db:"daily_limit"`
}

func (l Listing) Price() decimal.Decimal { return money.FromMinor(l.PriceMinor) }

func (l Listing) IsUnlimited() bool { return l.Quantity == UnlimitedQuantity }

// PurchaseOrder is a standing buy offer
type PurchaseOrder struct {
	Item
	Buyer      Party         `db:"buyer"`
	PriceMinor int64         `db:"price"`
	Target     int64         `db:"target_amount"`
	Current    int64         `db:"current_amount"`
	DailyLimit sql.NullInt64 `db:"daily_limit"`
}

func (o PurchaseOrder) Price() decimal.Decimal { return money.FromMinor(o.PriceMinor) }

// Remaining is target minus current; -1 for orders without a target.
func (o PurchaseOrder) Remaining() int64 {
	if o.Target == UnboundedTarget {
		return -1
	}
	return o.Target - o.Current
}

func (o PurchaseOrder) IsCompleted() bool {
	return o.Target != UnboundedTarget && o.Current >= o.Target
}

// HistoryRecord represents immutable trade history
type HistoryRecord struct {
	Id          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	FromId      string    `db:"from_id"`
	FromKind    PartyKind `db:"from_kind"`
	FromName    string    `db:"from_name"`
	ToId        string    `db:"to_id"`
	ToKind      PartyKind `db:"to_kind"`
	ToName      string    `db:"to_name"`
	AmountMinor int64     `db:"amount"`
	Description string    `db:"description"`
}

func (h HistoryRecord) Amount() decimal.Decimal { return money.FromMinor(h.AmountMinor) }

// Parcel is an item stack held for an account that could not receive it directly
type Parcel struct {
	Account Party `db:"account"`
	Item
	Count     int64     `db:"count"`
	Reason    string    `db:"reason"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CurrencyItem maps a physical item to the balance it is worth
type CurrencyItem struct {
	Item
	ValueMinor int64 `db:"value"`
}

func (c CurrencyItem) Value() decimal.Decimal { return money.FromMinor(c.ValueMinor) }
