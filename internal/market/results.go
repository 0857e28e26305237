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
	"server-market-go/internal/models"

	"github.com/shopspring/decimal"
)

// PurchaseResult is one of PurchaseSuccess, InsufficientFunds,
// InsufficientStock, LimitExceeded, NotFound, AmbiguousVariant,
// CannotBuyOwnItem or Failure.
type PurchaseResult interface {
	purchaseResult()
}

// SellResult is one of SellSuccess, InsufficientFunds, LimitExceeded,
// NotFound or Failure.
type SellResult interface {
	sellResult()
}

// TransferResult is one of TransferSuccess, InsufficientFunds or Failure.
type TransferResult interface {
	transferResult()
}

// Allocation is the share of a purchase served by one seller.
type Allocation struct {
	Seller    models.Party
	Item      models.Item
	Quantity  int64
	UnitPrice decimal.Decimal
}

type PurchaseSuccess struct {
	TotalCost decimal.Decimal
	Quantity  int64
	// Given lists what each seller contributed, cheapest first, so the caller
	// can hand out the matching physical items.
	Given []Allocation
}

type SellSuccess struct {
	Amount      int64
	TotalEarned decimal.Decimal
	Buyer       models.Party
	Item        models.Item
}

type TransferSuccess struct {
	Amount  decimal.Decimal
	Balance decimal.Decimal
}

type InsufficientFunds struct {
	Required decimal.Decimal
}

type InsufficientStock struct {
	Available int64
}

type LimitExceeded struct {
	Remaining int64
}

type NotFound struct{}

type AmbiguousVariant struct {
	Count int
}

type CannotBuyOwnItem struct{}

// Failure carries an unexpected store error. The unit it came from was rolled back.
type Failure struct {
	Message string
}

func (PurchaseSuccess) purchaseResult()   {}
func (InsufficientFunds) purchaseResult() {}
func (InsufficientStock) purchaseResult() {}
func (LimitExceeded) purchaseResult()     {}
func (NotFound) purchaseResult()          {}
func (AmbiguousVariant) purchaseResult()  {}
func (CannotBuyOwnItem) purchaseResult()  {}
func (Failure) purchaseResult()           {}

func (SellSuccess) sellResult()       {}
func (InsufficientFunds) sellResult() {}
func (LimitExceeded) sellResult()     {}
func (NotFound) sellResult()          {}
func (Failure) sellResult()           {}

func (TransferSuccess) transferResult()   {}
func (InsufficientFunds) transferResult() {}
func (Failure) transferResult()           {}
