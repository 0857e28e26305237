package api

import (
	"context"
	"fmt"

	"server-market-go/internal/database"
	"server-market-go/internal/exchange"
	"server-market-go/internal/gateway"
	"server-market-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Parcels lists the items waiting for an account.
func (s *MarketService) Parcels(ctx context.Context, p models.Party) ([]models.Parcel, error) {
	return gateway.Submit(s.gw, "list parcels", func(ctx context.Context, tx *database.Tx) ([]models.Parcel, error) {
		return tx.Parcels().ListFor(ctx, p)
	}).Wait(ctx)
}

// ClaimParcel takes a parcel out of the station and grants its items. The
// parcel is removed only after the grant succeeds.
func (s *MarketService) ClaimParcel(ctx context.Context, p models.Party, item models.Item) (int64, error) {
	count, err := gateway.Submit(s.gw, "claim parcel", func(ctx context.Context, tx *database.Tx) (int64, error) {
		return tx.Parcels().Withdraw(ctx, p, item)
	}).Wait(ctx)
	if err != nil || count == 0 {
		return 0, err
	}

	if err := s.dispenser.Grant(ctx, p, item, count); err != nil {
		zap.L().Error("Failed to grant parcel, returning it to the station",
			zap.String("account", p.Key()),
			zap.String("item", item.String()),
			zap.Int64("count", count),
			zap.Error(err))
		_, redepositErr := gateway.Submit(s.gw, "return parcel", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
			return struct{}{}, tx.Parcels().Deposit(ctx, p, item, count, "Returned after failed claim")
		}).Wait(ctx)
		if redepositErr != nil {
			return 0, fmt.Errorf("failed to return parcel after grant error %v: %w", err, redepositErr)
		}
		return 0, fmt.Errorf("failed to grant parcel: %w", err)
	}
	return count, nil
}

// DepositCurrency converts physical currency items into balance.
func (s *MarketService) DepositCurrency(ctx context.Context, p models.Party, item models.Item, count int64) (decimal.Decimal, error) {
	return s.exchange.DepositItems(p, item, count).Wait(ctx)
}

// WithdrawCurrency debits balance and grants the matching currency items.
func (s *MarketService) WithdrawCurrency(ctx context.Context, p models.Party, amount decimal.Decimal) ([]exchange.Payout, error) {
	payouts, err := s.exchange.Withdraw(p, amount).Wait(ctx)
	if err != nil {
		return nil, err
	}
	for _, payout := range payouts {
		if err := s.dispenser.Grant(ctx, p, payout.Item, payout.Count); err != nil {
			zap.L().Error("Failed to grant currency items",
				zap.String("account", p.Key()),
				zap.String("item", payout.Item.String()),
				zap.Int64("count", payout.Count),
				zap.Error(err))
		}
	}
	return payouts, nil
}

func (s *MarketService) Rates(ctx context.Context) ([]models.CurrencyItem, error) {
	return s.exchange.Rates().Wait(ctx)
}
