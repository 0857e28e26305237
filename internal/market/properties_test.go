package market

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"server-market-go/internal/database"
	"server-market-go/internal/models"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func drawCandidates(t *rapid.T) []Candidate {
	n := rapid.IntRange(0, 8).Draw(t, "candidates")
	prices := make([]int64, n)
	for i := range prices {
		prices[i] = rapid.Int64Range(1, 10000).Draw(t, fmt.Sprintf("price-%d", i))
	}
	slices.Sort(prices)

	candidates := make([]Candidate, n)
	for i, price := range prices {
		seller := newPlayer()
		available := rapid.Int64Range(0, 50).Draw(t, fmt.Sprintf("available-%d", i))
		if rapid.Bool().Draw(t, fmt.Sprintf("system-%d", i)) {
			seller = models.System
		}
		candidates[i] = Candidate{
			Listing: models.Listing{
				Item:       diamond,
				Seller:     seller,
				PriceMinor: price,
				Quantity:   available,
			},
			Available: available,
		}
	}
	return candidates
}

func TestPlanProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		candidates := drawCandidates(t)
		desired := rapid.Int64Range(1, 200).Draw(t, "desired")

		first, firstErr := BuildPlan(candidates, desired)
		second, secondErr := BuildPlan(candidates, desired)
		if !reflect.DeepEqual(first, second) || (firstErr == nil) != (secondErr == nil) {
			t.Fatalf("Planning twice gave different plans: %+v vs %+v", first, second)
		}

		if Fulfillable(candidates) < desired {
			if firstErr == nil {
				t.Fatalf("Expected a short plan error for %d", desired)
			}
			return
		}
		if firstErr != nil {
			t.Fatalf("Unexpected plan error: %v", firstErr)
		}
		if first.Quantity != desired {
			t.Fatalf("Plan covers %d, want %d", first.Quantity, desired)
		}

		var cost int64
		for i, a := range first.Allocations {
			if a.Quantity <= 0 {
				t.Fatalf("Allocation %d has quantity %d", i, a.Quantity)
			}
			if i > 0 && first.priceMinor[i] < first.priceMinor[i-1] {
				t.Fatalf("Allocation %d is cheaper than the one before it", i)
			}
			cost += first.priceMinor[i] * a.Quantity
		}
		if cost != first.TotalCostMinor {
			t.Fatalf("Total cost %d, allocations sum to %d", first.TotalCostMinor, cost)
		}
	})
}

func TestFulfillableSaturates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		candidates := drawCandidates(t)
		if rapid.Bool().Draw(t, "unbounded") {
			candidates = append(candidates, Candidate{Available: Unbounded}, Candidate{Available: Unbounded})
		}
		total := Fulfillable(candidates)
		if total < 0 {
			t.Fatalf("Fulfillable overflowed to %d", total)
		}
		for _, c := range candidates {
			if c.Available == Unbounded && total != Unbounded {
				t.Fatalf("Expected saturation, got %d", total)
			}
		}
	})
}

func TestAvailabilityRespectsDailyLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		quantity := rapid.Int64Range(-1, 100).Draw(t, "quantity")
		dailyLimit := rapid.Int64Range(0, 100).Draw(t, "limit")
		consumed := rapid.Int64Range(0, 150).Draw(t, "consumed")
		listing := models.Listing{
			Seller:     models.System,
			Quantity:   quantity,
			DailyLimit: sql.NullInt64{Int64: dailyLimit, Valid: true},
		}

		available, limited := Availability(listing, consumed)
		if available < 0 || available > max(dailyLimit-consumed, 0) {
			t.Fatalf("Availability %d outside [0, %d]", available, dailyLimit-consumed)
		}
		if quantity >= 0 && available > quantity {
			t.Fatalf("Availability %d exceeds stock %d", available, quantity)
		}
		if limited && available != max(dailyLimit-consumed, 0) {
			t.Fatalf("Limited availability %d is not the remaining limit", available)
		}
	})
}

func TestSearchPriceOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, cleanup := setupMarket(t)
		defer cleanup()

		n := rapid.IntRange(1, 6).Draw(t, "sellers")
		for i := 0; i < n; i++ {
			price := rapid.Int64Range(1, 500).Draw(t, fmt.Sprintf("price-%d", i))
			m.list(newPlayer(), diamond, decimal.New(price, -2).String(), 1)
		}
		if rapid.Bool().Draw(t, "system") {
			m.offerSystem(diamond, decimal.New(rapid.Int64Range(1, 500).Draw(t, "system-price"), -2).String(), models.UnlimitedQuantity, nil)
		}

		m.do(func(ctx context.Context, tx *database.Tx) error {
			listings, err := tx.Catalog().Search(ctx, database.SearchFilter{ItemId: diamond.Id})
			if err != nil {
				return err
			}
			for i := 1; i < len(listings); i++ {
				if listings[i].PriceMinor < listings[i-1].PriceMinor {
					return fmt.Errorf("listing %d priced %d after %d", i, listings[i].PriceMinor, listings[i-1].PriceMinor)
				}
			}
			return nil
		})
	})
}

func TestQuotaMonotonicWithinDay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, cleanup := setupMarket(t)
		defer cleanup()

		player := newPlayer()
		days := []string{"2026-10-15", "2026-10-16"}
		seen := map[string]int64{}
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			day := rapid.SampledFrom(days).Draw(t, fmt.Sprintf("day-%d", i))
			amount := rapid.Int64Range(-5, 10).Draw(t, fmt.Sprintf("amount-%d", i))
			m.do(func(ctx context.Context, tx *database.Tx) error {
				if err := tx.Quota().Increment(ctx, day, player, wheat, models.QuotaBuy, amount); err != nil {
					return err
				}
				consumed, err := tx.Quota().Consumed(ctx, day, player, wheat, models.QuotaBuy)
				if err != nil {
					return err
				}
				if consumed < seen[day] {
					return fmt.Errorf("counter for %s dropped from %d to %d", day, seen[day], consumed)
				}
				seen[day] = consumed
				fresh, err := tx.Quota().Consumed(ctx, "2026-10-17", player, wheat, models.QuotaBuy)
				if err != nil {
					return err
				}
				if fresh != 0 {
					return fmt.Errorf("expected a new day to start at zero, got %d", fresh)
				}
				return nil
			})
		}
	})
}

// Trades between players route money through the system account but never
// leave any of it there, so the sum of player balances is fixed.
func TestConservationAndNoNegativeBalances(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, cleanup := setupMarket(t)
		defer cleanup()

		players := []models.Party{newPlayer(), newPlayer(), newPlayer()}
		for _, p := range players {
			m.fund(p, "50.00")
		}
		total := dec("150")

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			actor := rapid.SampledFrom(players).Draw(t, fmt.Sprintf("actor-%d", i))
			other := rapid.SampledFrom(players).Draw(t, fmt.Sprintf("other-%d", i))
			amount := rapid.Int64Range(1, 3000).Draw(t, fmt.Sprintf("amount-%d", i))
			quantity := rapid.Int64Range(1, 5).Draw(t, fmt.Sprintf("quantity-%d", i))
			price := decimal.New(amount, -2)

			switch rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("op-%d", i)) {
			case 0:
				await(t, m.coord.Transfer(TransferRequest{From: actor, To: other, Amount: price}))
			case 1:
				await(t, m.coord.ListItem(ListRequest{Seller: actor, Item: diamond, Price: price, Quantity: quantity}))
			case 2:
				await(t, m.coord.Purchase(PurchaseRequest{Buyer: actor, ItemId: diamond.Id, Quantity: quantity, Seller: &other}))
			case 3:
				await(t, m.coord.PostOrder(OrderRequest{Buyer: actor, Item: diamond, Price: price, Target: quantity}))
			case 4:
				await(t, m.coord.SellToBuyer(SellRequest{Seller: actor, Item: diamond, Quantity: quantity}))
			}

			sum := decimal.Zero
			for _, p := range players {
				balance := m.balance(p)
				if balance.IsNegative() {
					t.Fatalf("Balance of %s went negative: %s", p, balance)
				}
				sum = sum.Add(balance)
			}
			if !sum.Equal(total) {
				t.Fatalf("Player balances sum to %s after step %d, want %s", sum, i, total)
			}
			if system := m.balance(models.System); !system.IsZero() {
				t.Fatalf("System balance drifted to %s", system)
			}
		}
	})
}

func TestPlanIgnoresEmptyCandidates(t *testing.T) {
	candidates := []Candidate{
		{Listing: models.Listing{Seller: models.System, PriceMinor: 100}, Available: 0},
		{Listing: models.Listing{Seller: newPlayer(), PriceMinor: 200, Quantity: 3}, Available: 3},
	}
	plan, err := BuildPlan(candidates, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(plan.Allocations) != 1 || plan.TotalCostMinor != 400 {
		t.Errorf("Expected one allocation costing 4.00, got %+v", plan)
	}
}
