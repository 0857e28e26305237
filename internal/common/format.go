package common

import (
	"fmt"
	"strings"

	"server-market-go/internal/market"
	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatParty renders an account as "name (key)", or just the key when the
// account has no name.
func FormatParty(p models.Party, name string) string {
	if name == "" || p.IsSystem() {
		return p.Key()
	}
	return fmt.Sprintf("%s (%s)", name, p.Key())
}

// FormatAmount renders a currency amount with two decimals.
func FormatAmount(amount decimal.Decimal) string {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return amount.StringFixed(2)
	}
	return money.FormatMinor(minor)
}

// FormatQuantity renders a listing quantity, where a negative value means
// unlimited stock.
func FormatQuantity(quantity int64) string {
	if quantity == models.UnlimitedQuantity {
		return "unlimited"
	}
	return fmt.Sprintf("%d", quantity)
}

// DescribeResult renders a purchase, sell or transfer outcome for operators.
func DescribeResult(result any) string {
	switch r := result.(type) {
	case market.PurchaseSuccess:
		return fmt.Sprintf("bought %d for %s from %d seller(s)", r.Quantity, FormatAmount(r.TotalCost), len(r.Given))
	case market.SellSuccess:
		return fmt.Sprintf("sold %d %s to %s for %s", r.Amount, r.Item, r.Buyer, FormatAmount(r.TotalEarned))
	case market.TransferSuccess:
		return fmt.Sprintf("paid %s, balance now %s", FormatAmount(r.Amount), FormatAmount(r.Balance))
	case market.InsufficientFunds:
		return fmt.Sprintf("insufficient funds: %s required", FormatAmount(r.Required))
	case market.InsufficientStock:
		return fmt.Sprintf("insufficient stock: %d available", r.Available)
	case market.LimitExceeded:
		return fmt.Sprintf("daily limit reached: %d remaining", r.Remaining)
	case market.NotFound:
		return "no matching listing or order"
	case market.AmbiguousVariant:
		return fmt.Sprintf("item matches %d variants, specify one", r.Count)
	case market.CannotBuyOwnItem:
		return "cannot buy your own listing"
	case market.Failure:
		return "failed: " + r.Message
	default:
		return fmt.Sprintf("%v", result)
	}
}
