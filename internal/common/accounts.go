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

package common

import (
	"context"
	"fmt"
	"strings"

	"server-market-go/internal/api"
	"server-market-go/internal/models"

	"go.uber.org/zap"
)

// ResolveAccounts returns the accounts matching filter, or every account when
// filter is empty. The filter is an account key or a display name.
func ResolveAccounts(ctx context.Context, svc *api.MarketService, filter string) ([]models.AccountBalance, error) {
	accounts, err := svc.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	if filter == "" {
		zap.L().Info("Retrieved accounts", zap.Int("count", len(accounts)))
		return accounts, nil
	}

	zap.L().Info("Looking up account", zap.String("filter", filter))
	matched := FilterAccounts(accounts, filter)
	if len(matched) == 0 {
		return nil, fmt.Errorf("account not found: %s", filter)
	}
	return matched, nil
}

// ResolveParty maps a command-line reference to exactly one party. "SYSTEM"
// and account keys resolve directly; anything else must be a unique name.
func ResolveParty(ctx context.Context, svc *api.MarketService, ref string) (models.Party, error) {
	if p, err := models.ParseParty(ref); err == nil {
		return p, nil
	}
	accounts, err := ResolveAccounts(ctx, svc, ref)
	if err != nil {
		return models.Party{}, err
	}
	if len(accounts) > 1 {
		return models.Party{}, fmt.Errorf("name %q matches %d accounts", ref, len(accounts))
	}
	return accounts[0].Account, nil
}

func FilterAccounts(accounts []models.AccountBalance, filter string) []models.AccountBalance {
	var matched []models.AccountBalance
	for _, a := range accounts {
		if a.Account.Key() == filter || strings.EqualFold(a.Name, filter) {
			matched = append(matched, a)
		}
	}
	return matched
}
