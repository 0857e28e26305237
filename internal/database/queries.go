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

const (
	// Account queries
	queryGetBalance = `
		SELECT balance
		FROM accounts
		WHERE id = ?`

	queryAddBalance = `
		INSERT INTO accounts (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = balance + excluded.balance,
			updated_at = CURRENT_TIMESTAMP`

	queryWithdrawIfSufficient = `
		UPDATE accounts
		SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance >= ?`

	querySetBalance = `
		INSERT INTO accounts (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP`

	queryRegisterAccount = `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = CURRENT_TIMESTAMP`

	queryGetAccountName = `
		SELECT name
		FROM accounts
		WHERE id = ?`

	queryGetAllAccounts = `
		SELECT id, name, balance, updated_at
		FROM accounts
		ORDER BY CASE WHEN id = 'SYSTEM' THEN 0 ELSE 1 END, name, id`

	querySumPlayerBalances = `
		SELECT COALESCE(SUM(balance), 0)
		FROM accounts
		WHERE id != 'SYSTEM'`

	// Listing queries
	listingColumns = `item, variant, seller, price, quantity, daily_limit`

	queryGetListing = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE item = ? AND variant = ? AND seller = ?`

	queryListForSeller = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE item = ? AND seller = ?
		ORDER BY price ASC, variant`

	querySearchListings = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE item = ?`

	listingOrder = `
		ORDER BY price ASC, CASE WHEN seller = 'SYSTEM' THEN 0 ELSE 1 END, seller, variant`

	queryAllListings = `
		SELECT ` + listingColumns + `
		FROM listings
		ORDER BY item, variant, price ASC, seller`

	queryOfferListing = `
		INSERT INTO listings (item, variant, seller, price, quantity) VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(item, variant, seller) DO UPDATE SET price = excluded.price`

	queryOfferSystemListing = `
		INSERT INTO listings (item, variant, seller, price, quantity, daily_limit) VALUES (?, ?, 'SYSTEM', ?, ?, ?)
		ON CONFLICT(item, variant, seller) DO UPDATE SET
			price = excluded.price,
			quantity = excluded.quantity,
			daily_limit = excluded.daily_limit`

	queryRestockListing = `
		UPDATE listings
		SET quantity = quantity + ?
		WHERE item = ? AND variant = ? AND seller = ? AND quantity >= 0 AND quantity + ? >= 0`

	queryDeleteListing = `
		DELETE FROM listings
		WHERE item = ? AND variant = ? AND seller = ?`

	// Purchase order queries
	orderColumns = `item, variant, buyer, price, target_amount, current_amount, daily_limit`

	queryGetOrder = `
		SELECT ` + orderColumns + `
		FROM purchase_orders
		WHERE item = ? AND variant = ? AND buyer = ?`

	queryOpenPlayerOrders = `
		SELECT ` + orderColumns + `
		FROM purchase_orders
		WHERE item = ? AND variant = ? AND buyer != 'SYSTEM' AND current_amount < target_amount
		ORDER BY price DESC, created_at ASC, buyer`

	queryOrdersForBuyer = `
		SELECT ` + orderColumns + `
		FROM purchase_orders
		WHERE buyer = ?
		ORDER BY item, variant`

	queryAllOrders = `
		SELECT ` + orderColumns + `
		FROM purchase_orders
		ORDER BY item, variant, price DESC, buyer`

	queryUpsertOrder = `
		INSERT INTO purchase_orders (item, variant, buyer, price, target_amount, current_amount, daily_limit)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(item, variant, buyer) DO UPDATE SET
			price = excluded.price,
			target_amount = excluded.target_amount,
			daily_limit = excluded.daily_limit`

	queryFillOrder = `
		UPDATE purchase_orders
		SET current_amount = current_amount + ?
		WHERE item = ? AND variant = ? AND buyer = ?
		  AND (target_amount < 0 OR current_amount + ? <= target_amount)`

	queryDeleteOrder = `
		DELETE FROM purchase_orders
		WHERE item = ? AND variant = ? AND buyer = ?`

	// Quota queries
	queryGetQuota = `
		SELECT count
		FROM daily_quota
		WHERE day = ? AND account = ? AND item = ? AND variant = ? AND kind = ?`

	queryIncrementQuota = `
		INSERT INTO daily_quota (day, account, item, variant, kind, count) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(day, account, item, variant, kind) DO UPDATE SET count = count + excluded.count`

	queryPruneQuota = `
		DELETE FROM daily_quota
		WHERE day < ?`

	// History queries
	queryInsertHistory = `
		INSERT INTO history (
			id, created_at, from_id, from_kind, from_name, to_id, to_kind, to_name, amount, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	historyColumns = `id, created_at, from_id, from_kind, from_name, to_id, to_kind, to_name, amount, description`

	queryGetHistoryForAccount = `
		SELECT ` + historyColumns + `
		FROM history
		WHERE from_id = ? OR to_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetRecentHistory = `
		SELECT ` + historyColumns + `
		FROM history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Parcel queries
	parcelColumns = `account, item, variant, count, reason, updated_at`

	queryDepositParcel = `
		INSERT INTO parcels (account, item, variant, count, reason, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, item, variant) DO UPDATE SET
			count = count + excluded.count,
			reason = excluded.reason,
			updated_at = excluded.updated_at`

	queryGetParcelsForAccount = `
		SELECT ` + parcelColumns + `
		FROM parcels
		WHERE account = ?
		ORDER BY updated_at DESC, item, variant`

	queryGetParcelCount = `
		SELECT count
		FROM parcels
		WHERE account = ? AND item = ? AND variant = ?`

	queryDeleteParcel = `
		DELETE FROM parcels
		WHERE account = ? AND item = ? AND variant = ?`

	// Currency queries
	queryUpsertCurrencyItem = `
		INSERT INTO currency_items (item, variant, value) VALUES (?, ?, ?)
		ON CONFLICT(item, variant) DO UPDATE SET value = excluded.value`

	queryGetCurrencyValue = `
		SELECT value
		FROM currency_items
		WHERE item = ? AND variant = ?`

	queryGetCurrencyItems = `
		SELECT item, variant, value
		FROM currency_items
		ORDER BY value DESC, item, variant`

	queryDeleteCurrencyItem = `
		DELETE FROM currency_items
		WHERE item = ? AND variant = ?`
)
