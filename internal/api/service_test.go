package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"server-market-go/internal/database"
	"server-market-go/internal/exchange"
	"server-market-go/internal/gateway"
	"server-market-go/internal/market"
	"server-market-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type grant struct {
	recipient models.Party
	item      models.Item
	count     int64
}

type recordingDispenser struct {
	mu     sync.Mutex
	grants []grant
	err    error
}

func (d *recordingDispenser) Grant(_ context.Context, recipient models.Party, item models.Item, count int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.grants = append(d.grants, grant{recipient, item, count})
	return nil
}

func (d *recordingDispenser) all() []grant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]grant(nil), d.grants...)
}

func setupTestService(t *testing.T) (*MarketService, *recordingDispenser, *gateway.Loop, func()) {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:        ":memory:",
		BusyTimeout: time.Second,
		PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	gw := gateway.New(svc, models.GatewayConfig{QueueSize: 32})
	gw.Start(context.Background())

	dispenser := &recordingDispenser{}
	loop := gateway.NewLoop()
	service := NewMarketService(gw, market.NewCoordinator(gw, market.FixedClock("2026-10-15")), exchange.New(gw), dispenser, loop)

	cleanup := func() {
		_ = gw.Stop(context.Background())
		svc.Close()
	}
	return service, dispenser, loop, cleanup
}

var iron = models.Item{Id: "minecraft:iron_ingot"}

func TestHealthCheck(t *testing.T) {
	service, _, _, cleanup := setupTestService(t)
	defer cleanup()

	if err := service.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestAdminBalances(t *testing.T) {
	service, _, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	player := models.Player(uuid.New())

	if err := service.SetBalance(ctx, player, decimal.NewFromInt(30)); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}
	if err := service.AdjustBalance(ctx, player, decimal.NewFromInt(-12)); err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}
	if err := service.AdjustBalance(ctx, player, decimal.NewFromInt(-19)); !errors.Is(err, database.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if err := service.SetBalance(ctx, player, decimal.NewFromInt(-1)); !errors.Is(err, database.ErrNegativeBalance) {
		t.Errorf("Expected ErrNegativeBalance, got %v", err)
	}

	balance, err := service.GetBalance(ctx, player)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(18)) {
		t.Errorf("Expected 18, got %s", balance)
	}

	history, err := service.GetHistory(ctx, player, 0, -5)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 admin records, got %d", len(history))
	}
	if history[0].FromId != player.Key() || !history[0].Amount().Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected newest record to be the 12.00 debit, got %+v", history[0])
	}
}

func TestBuy_GrantsOnCallerLoop(t *testing.T) {
	service, dispenser, loop, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	buyer, seller := models.Player(uuid.New()), models.Player(uuid.New())
	if err := service.SetBalance(ctx, buyer, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}
	if _, err := service.ListItem(market.ListRequest{Seller: seller, Item: iron, Price: decimal.NewFromInt(3), Quantity: 10}).Wait(ctx); err != nil {
		t.Fatalf("ListItem failed: %v", err)
	}

	result, err := service.Buy(market.PurchaseRequest{Buyer: buyer, ItemId: iron.Id, Quantity: 4}).Wait(ctx)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if _, ok := result.(market.PurchaseSuccess); !ok {
		t.Fatalf("Expected PurchaseSuccess, got %#v", result)
	}

	select {
	case <-loop.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("Grant was never scheduled")
	}
	if len(dispenser.all()) != 0 {
		t.Fatal("Items granted before the caller loop ran")
	}
	loop.RunPending()

	grants := dispenser.all()
	if len(grants) != 1 || grants[0].recipient != buyer || grants[0].count != 4 {
		t.Errorf("Expected 4 iron granted to buyer, got %+v", grants)
	}

	listings, err := service.ListListings(ctx)
	if err != nil {
		t.Fatalf("ListListings failed: %v", err)
	}
	if len(listings) != 1 || listings[0].Quantity != 6 {
		t.Errorf("Expected 6 left on the listing, got %+v", listings)
	}
}

func TestClaimParcel(t *testing.T) {
	service, dispenser, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	buyer, seller := models.Player(uuid.New()), models.Player(uuid.New())
	if err := service.SetBalance(ctx, buyer, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}
	if _, err := service.PostOrder(market.OrderRequest{Buyer: buyer, Item: iron, Price: decimal.NewFromInt(2), Target: 5}).Wait(ctx); err != nil {
		t.Fatalf("PostOrder failed: %v", err)
	}
	if _, err := service.Sell(market.SellRequest{Seller: seller, Item: iron, Quantity: 3}).Wait(ctx); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	dispenser.err = errors.New("inventory full")
	if _, err := service.ClaimParcel(ctx, buyer, iron); err == nil {
		t.Fatal("Expected a failed grant to fail the claim")
	}
	parcels, err := service.Parcels(ctx, buyer)
	if err != nil || len(parcels) != 1 || parcels[0].Count != 3 {
		t.Fatalf("Expected parcel kept after failed grant, got %+v, %v", parcels, err)
	}

	dispenser.err = nil
	count, err := service.ClaimParcel(ctx, buyer, iron)
	if err != nil || count != 3 {
		t.Fatalf("Expected to claim 3, got %d, %v", count, err)
	}
	if count, _ := service.ClaimParcel(ctx, buyer, iron); count != 0 {
		t.Errorf("Expected nothing left to claim, got %d", count)
	}

	order, err := service.CancelOrder(buyer, iron).Wait(ctx)
	if err != nil || order.Current != 3 {
		t.Errorf("Expected cancelled order with 3 filled, got %+v, %v", order, err)
	}
}
