package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"server-market-go/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ParcelStation holds items for accounts that cannot be handed them directly,
// such as a buyer who is offline when their purchase order fills.
type ParcelStation struct {
	q   sqlx.ExtContext
	now func() time.Time
}

func NewParcelStation(q sqlx.ExtContext) *ParcelStation {
	return &ParcelStation{q: q, now: time.Now}
}

func (s *ParcelStation) Deposit(ctx context.Context, account models.Party, item models.Item, count int64, reason string) error {
	if count <= 0 {
		return ErrInvalidQuantity
	}
	_, err := s.q.ExecContext(ctx, queryDepositParcel, account, item.Id, item.Variant, count, reason, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deposit parcel: %w", err)
	}
	zap.L().Info("Parcel deposited",
		zap.String("account", account.Key()),
		zap.String("item", item.String()),
		zap.Int64("count", count),
		zap.String("reason", reason))
	return nil
}

func (s *ParcelStation) ListFor(ctx context.Context, account models.Party) ([]models.Parcel, error) {
	var parcels []models.Parcel
	if err := sqlx.SelectContext(ctx, s.q, &parcels, queryGetParcelsForAccount, account); err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	return parcels, nil
}

// Withdraw removes a parcel and returns how many items it held; zero when
// there was nothing to collect.
func (s *ParcelStation) Withdraw(ctx context.Context, account models.Party, item models.Item) (int64, error) {
	var count int64
	err := s.q.QueryRowxContext(ctx, queryGetParcelCount, account, item.Id, item.Variant).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get parcel: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, queryDeleteParcel, account, item.Id, item.Variant); err != nil {
		return 0, fmt.Errorf("failed to withdraw parcel: %w", err)
	}
	return count, nil
}
