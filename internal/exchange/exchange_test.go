package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"server-market-go/internal/database"
	"server-market-go/internal/gateway"
	"server-market-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	gold    = models.Item{Id: "minecraft:gold_ingot"}
	emerald = models.Item{Id: "minecraft:emerald"}
	nugget  = models.Item{Id: "minecraft:gold_nugget"}
)

func setupExchange(t *testing.T) (*Exchange, *gateway.Gateway, func()) {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:        ":memory:",
		BusyTimeout: time.Second,
		PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	gw := gateway.New(svc, models.GatewayConfig{QueueSize: 16})
	gw.Start(context.Background())

	_, err = gateway.Submit(gw, "rates", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		for item, value := range map[models.Item]string{gold: "10.00", emerald: "2.50", nugget: "1.00"} {
			if err := tx.Currency().SetValue(ctx, item, decimal.RequireFromString(value)); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	}).Wait(context.Background())
	if err != nil {
		t.Fatalf("Failed to seed currency: %v", err)
	}

	cleanup := func() {
		_ = gw.Stop(context.Background())
		svc.Close()
	}
	return New(gw), gw, cleanup
}

func TestBreakdown(t *testing.T) {
	items := []models.CurrencyItem{
		{Item: gold, ValueMinor: 1000},
		{Item: emerald, ValueMinor: 250},
		{Item: nugget, ValueMinor: 100},
	}
	tests := []struct {
		name      string
		amount    int64
		want      map[string]int64
		remainder int64
	}{
		{"exact", 2350, map[string]int64{gold.Id: 2, emerald.Id: 1, nugget.Id: 1}, 0},
		{"remainder", 1075, map[string]int64{gold.Id: 1}, 75},
		{"too small", 50, map[string]int64{}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts, remainder := Breakdown(items, tt.amount)
			if remainder != tt.remainder {
				t.Errorf("Expected remainder %d, got %d", tt.remainder, remainder)
			}
			if len(payouts) != len(tt.want) {
				t.Fatalf("Expected %d payouts, got %+v", len(tt.want), payouts)
			}
			for _, p := range payouts {
				if tt.want[p.Item.Id] != p.Count {
					t.Errorf("Expected %d x %s, got %d", tt.want[p.Item.Id], p.Item.Id, p.Count)
				}
			}
		})
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	ex, gw, cleanup := setupExchange(t)
	defer cleanup()

	ctx := context.Background()
	player := models.Player(uuid.New())

	credit, err := ex.DepositItems(player, emerald, 4).Wait(ctx)
	if err != nil {
		t.Fatalf("DepositItems failed: %v", err)
	}
	if !credit.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected 10.00 credited, got %s", credit)
	}

	if _, err := ex.DepositItems(player, models.Item{Id: "minecraft:dirt"}, 1).Wait(ctx); !errors.Is(err, ErrNotCurrency) {
		t.Errorf("Expected ErrNotCurrency, got %v", err)
	}

	payouts, err := ex.Withdraw(player, decimal.RequireFromString("3.75")).Wait(ctx)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if len(payouts) != 2 || payouts[0].Item != emerald || payouts[1].Item != nugget {
		t.Errorf("Expected one emerald and one nugget, got %+v", payouts)
	}

	balance, err := gateway.Submit(gw, "balance", func(ctx context.Context, tx *database.Tx) (decimal.Decimal, error) {
		return tx.Ledger().GetBalance(ctx, player)
	}).Wait(ctx)
	if err != nil {
		t.Fatalf("Failed to read balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("6.50")) {
		t.Errorf("Expected 10.00 - 3.50 = 6.50, got %s", balance)
	}

	if _, err := ex.Withdraw(player, decimal.RequireFromString("0.50")).Wait(ctx); !errors.Is(err, ErrNotRepresentable) {
		t.Errorf("Expected ErrNotRepresentable, got %v", err)
	}
	if _, err := ex.Withdraw(player, decimal.NewFromInt(100)).Wait(ctx); !errors.Is(err, database.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	rates, err := ex.Rates().Wait(ctx)
	if err != nil || len(rates) != 3 || rates[0].Item != gold {
		t.Errorf("Expected three rates led by gold, got %+v, %v", rates, err)
	}
}
