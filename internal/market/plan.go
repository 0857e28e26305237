package market

import (
	"errors"
	"math"

	"server-market-go/internal/models"
	"server-market-go/internal/money"
)

// Unbounded is the availability of an unlimited listing. Sums saturate here
// instead of overflowing.
const Unbounded int64 = math.MaxInt64

var ErrShortPlan = errors.New("candidates cannot cover the requested quantity")

// Candidate is a listing together with how much of it the buyer may take
// right now.
type Candidate struct {
	Listing   models.Listing
	Available int64
	// Limited is set when a daily limit, not stock, caps Available.
	Limited bool
}

// Plan is the allocation a purchase will execute.
type Plan struct {
	Allocations    []Allocation
	Quantity       int64
	TotalCostMinor int64

	priceMinor []int64
}

// Availability is how many units of a listing a buyer may take, given what
// they already bought from it today.
func Availability(l models.Listing, consumedToday int64) (available int64, limited bool) {
	if !l.Seller.IsSystem() {
		return max(l.Quantity, 0), false
	}
	available = l.Quantity
	if l.IsUnlimited() {
		available = Unbounded
	}
	if l.DailyLimit.Valid {
		remaining := max(l.DailyLimit.Int64-consumedToday, 0)
		if remaining < available {
			return remaining, true
		}
	}
	return available, false
}

// Fulfillable sums the availability of every candidate.
func Fulfillable(candidates []Candidate) int64 {
	var total int64
	for _, c := range candidates {
		total = saturatingAdd(total, c.Available)
	}
	return total
}

// LimitBound reports whether any candidate is held back by a daily limit.
func LimitBound(candidates []Candidate) bool {
	for _, c := range candidates {
		if c.Limited {
			return true
		}
	}
	return false
}

// BuildPlan walks candidates in the given order, which must be ascending
// price, and takes from each until desired is covered. It has no side effects.
func BuildPlan(candidates []Candidate, desired int64) (Plan, error) {
	var plan Plan
	remaining := desired
	for _, c := range candidates {
		if remaining == 0 {
			break
		}
		take := min(c.Available, remaining)
		if take <= 0 {
			continue
		}
		cost, err := money.MulMinor(c.Listing.PriceMinor, take)
		if err != nil {
			return Plan{}, err
		}
		if plan.TotalCostMinor > math.MaxInt64-cost {
			return Plan{}, money.ErrOverflow
		}
		plan.TotalCostMinor += cost
		plan.Quantity += take
		plan.Allocations = append(plan.Allocations, Allocation{
			Seller:    c.Listing.Seller,
			Item:      c.Listing.Item,
			Quantity:  take,
			UnitPrice: c.Listing.Price(),
		})
		plan.priceMinor = append(plan.priceMinor, c.Listing.PriceMinor)
		remaining -= take
	}
	if remaining > 0 {
		return Plan{}, ErrShortPlan
	}
	return plan, nil
}

func saturatingAdd(a, b int64) int64 {
	if a > Unbounded-b {
		return Unbounded
	}
	return a + b
}
