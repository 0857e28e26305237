package database

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Sentinel errors for database operations
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeBalance   = errors.New("only the system account may hold a negative balance")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrListingNotFound   = errors.New("listing not found")
	ErrNegativeQuantity  = errors.New("listing quantity cannot go below zero")
	ErrOrderNotFound     = errors.New("purchase order not found")
	ErrTargetBelowFilled = errors.New("order target is below the amount already filled")
	ErrOrderOverfilled   = errors.New("fill exceeds order target")
	ErrSystemOnly        = errors.New("operation is only valid for the system account")
	ErrPlayerOnly        = errors.New("operation is not valid for the system account")
)

// Tx is one unit of work against the store. Components obtained from the same
// Tx share its transaction and commit or roll back together.
type Tx struct {
	tx  *sqlx.Tx
	now func() time.Time
}

func (t *Tx) Ledger() *Ledger { return NewLedger(t.tx) }

func (t *Tx) Catalog() *Catalog { return NewCatalog(t.tx) }

func (t *Tx) Orders() *OrderBook { return NewOrderBook(t.tx) }

func (t *Tx) Quota() *QuotaTracker { return NewQuotaTracker(t.tx) }

func (t *Tx) History() *History { return &History{q: t.tx, now: t.now} }

func (t *Tx) Parcels() *ParcelStation { return &ParcelStation{q: t.tx, now: t.now} }

func (t *Tx) Currency() *CurrencyTable { return NewCurrencyTable(t.tx) }
