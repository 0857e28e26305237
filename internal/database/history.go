package database

import (
	"context"
	"fmt"
	"time"

	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// History is the append-only record of money movements between parties.
type History struct {
	q   sqlx.ExtContext
	now func() time.Time
}

func NewHistory(q sqlx.ExtContext) *History {
	return &History{q: q, now: time.Now}
}

// Append writes one record, resolving display names from the accounts table.
func (h *History) Append(ctx context.Context, from, to models.Party, amount decimal.Decimal, description string) (*models.HistoryRecord, error) {
	amountMinor, err := money.ToMinor(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	ledger := NewLedger(h.q)
	fromName, err := ledger.Name(ctx, from)
	if err != nil {
		return nil, err
	}
	toName, err := ledger.Name(ctx, to)
	if err != nil {
		return nil, err
	}

	record := &models.HistoryRecord{
		Id:          uuid.New().String(),
		CreatedAt:   h.now().UTC(),
		FromId:      from.Key(),
		FromKind:    from.Kind(),
		FromName:    fromName,
		ToId:        to.Key(),
		ToKind:      to.Kind(),
		ToName:      toName,
		AmountMinor: amountMinor,
		Description: description,
	}

	_, err = h.q.ExecContext(ctx, queryInsertHistory,
		record.Id, record.CreatedAt, record.FromId, record.FromKind, record.FromName,
		record.ToId, record.ToKind, record.ToName, record.AmountMinor, record.Description)
	if err != nil {
		zap.L().Error("Failed to insert history record",
			zap.String("from", record.FromId),
			zap.String("to", record.ToId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to insert history record: %w", err)
	}
	return record, nil
}

// For returns records where p is sender or receiver, newest first.
func (h *History) For(ctx context.Context, p models.Party, limit, offset int) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	if err := sqlx.SelectContext(ctx, h.q, &records, queryGetHistoryForAccount, p, p, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}

// Recent returns the newest records across all accounts.
func (h *History) Recent(ctx context.Context, limit, offset int) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	if err := sqlx.SelectContext(ctx, h.q, &records, queryGetRecentHistory, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}
