package api

import (
	"context"

	"server-market-go/internal/database"
	"server-market-go/internal/gateway"
	"server-market-go/internal/market"
	"server-market-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Buy runs a purchase and, once it has committed, grants the items on the
// service executor.
func (s *MarketService) Buy(req market.PurchaseRequest) *gateway.Future[market.PurchaseResult] {
	f := s.coord.Purchase(req)
	f.Then(s.exec, func(result market.PurchaseResult, err error) {
		success, ok := result.(market.PurchaseSuccess)
		if err != nil || !ok {
			return
		}
		market.Dispense(context.Background(), s.dispenser, req.Buyer, success)
	})
	return f
}

// Sell sells items the caller has already taken from the seller.
func (s *MarketService) Sell(req market.SellRequest) *gateway.Future[market.SellResult] {
	return s.coord.SellToBuyer(req)
}

func (s *MarketService) Pay(from, to models.Party, amount decimal.Decimal, description string) *gateway.Future[market.TransferResult] {
	return s.coord.Transfer(market.TransferRequest{From: from, To: to, Amount: amount, Description: description})
}

func (s *MarketService) ListItem(req market.ListRequest) *gateway.Future[*models.Listing] {
	return s.coord.ListItem(req)
}

// Delist removes a listing and grants the unsold items back to the seller.
func (s *MarketService) Delist(seller models.Party, item models.Item) *gateway.Future[int64] {
	f := s.coord.Delist(seller, item)
	f.Then(s.exec, func(returned int64, err error) {
		if err != nil || returned <= 0 {
			return
		}
		if err := s.dispenser.Grant(context.Background(), seller, item, returned); err != nil {
			zap.L().Error("Failed to return delisted items",
				zap.String("seller", seller.Key()),
				zap.String("item", item.String()),
				zap.Int64("count", returned),
				zap.Error(err))
		}
	})
	return f
}

func (s *MarketService) PostOrder(req market.OrderRequest) *gateway.Future[*models.PurchaseOrder] {
	return s.coord.PostOrder(req)
}

func (s *MarketService) CancelOrder(buyer models.Party, item models.Item) *gateway.Future[*models.PurchaseOrder] {
	return s.coord.CancelOrder(buyer, item)
}

// ListListings is the display read of the catalog.
func (s *MarketService) ListListings(ctx context.Context) ([]models.Listing, error) {
	return gateway.Submit(s.gw, "list listings", func(ctx context.Context, tx *database.Tx) ([]models.Listing, error) {
		return tx.Catalog().All(ctx)
	}).Wait(ctx)
}

// ListOrders is the display read of the order book.
func (s *MarketService) ListOrders(ctx context.Context) ([]models.PurchaseOrder, error) {
	return gateway.Submit(s.gw, "list orders", func(ctx context.Context, tx *database.Tx) ([]models.PurchaseOrder, error) {
		return tx.Orders().All(ctx)
	}).Wait(ctx)
}

// Search lists the offers for one item the way a buyer would see them.
func (s *MarketService) Search(ctx context.Context, filter database.SearchFilter) ([]models.Listing, error) {
	return gateway.Submit(s.gw, "search listings", func(ctx context.Context, tx *database.Tx) ([]models.Listing, error) {
		return tx.Catalog().Search(ctx, filter)
	}).Wait(ctx)
}
