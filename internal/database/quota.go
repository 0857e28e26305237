package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"server-market-go/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// QuotaTracker keeps per-(day, account, item, kind) counters. Day keys are
// supplied by the caller so the tracker never reads the wall clock.
type QuotaTracker struct {
	q sqlx.ExtContext
}

func NewQuotaTracker(q sqlx.ExtContext) *QuotaTracker {
	return &QuotaTracker{q: q}
}

// Consumed returns the running count for the key, zero when absent.
func (t *QuotaTracker) Consumed(ctx context.Context, day string, p models.Party, item models.Item, kind models.QuotaKind) (int64, error) {
	var count int64
	err := t.q.QueryRowxContext(ctx, queryGetQuota, day, p, item.Id, item.Variant, kind).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quota: %w", err)
	}
	return count, nil
}

// Increment adds amount to the counter. Non-positive amounts are ignored so
// counters never decrease within a day.
func (t *QuotaTracker) Increment(ctx context.Context, day string, p models.Party, item models.Item, kind models.QuotaKind, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if _, err := t.q.ExecContext(ctx, queryIncrementQuota, day, p, item.Id, item.Variant, kind, amount); err != nil {
		return fmt.Errorf("failed to increment quota: %w", err)
	}
	return nil
}

// Prune deletes counters for days strictly before the given day key.
func (t *QuotaTracker) Prune(ctx context.Context, before string) (int64, error) {
	result, err := t.q.ExecContext(ctx, queryPruneQuota, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune quota: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if deleted > 0 {
		zap.L().Info("Pruned quota counters", zap.String("before", before), zap.Int64("rows", deleted))
	}
	return deleted, nil
}
