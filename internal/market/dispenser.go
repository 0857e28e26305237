package market

import (
	"context"

	"server-market-go/internal/models"

	"go.uber.org/zap"
)

// Dispenser hands physical items to a recipient after a trade has committed.
// Grant failures never undo a trade.
type Dispenser interface {
	Grant(ctx context.Context, recipient models.Party, item models.Item, count int64) error
}

// LogDispenser only records grants, for hosts with no world to put items in.
type LogDispenser struct{}

func (LogDispenser) Grant(_ context.Context, recipient models.Party, item models.Item, count int64) error {
	zap.L().Info("Items granted",
		zap.String("recipient", recipient.Key()),
		zap.String("item", item.String()),
		zap.Int64("count", count))
	return nil
}

// Dispense grants every allocation of a purchase to the buyer and returns how
// many grants failed.
func Dispense(ctx context.Context, d Dispenser, buyer models.Party, success PurchaseSuccess) int {
	failed := 0
	for _, a := range success.Given {
		if err := d.Grant(ctx, buyer, a.Item, a.Quantity); err != nil {
			failed++
			zap.L().Error("Failed to grant purchased items",
				zap.String("buyer", buyer.Key()),
				zap.String("item", a.Item.String()),
				zap.Int64("count", a.Quantity),
				zap.Error(err))
		}
	}
	return failed
}
