package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const statusActive = "active"

var (
	// ErrNotFound is returned for unknown account numbers.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned when an account or card number is already taken.
	ErrExists = errors.New("account already exists")
	// ErrOwnerNotFound is returned when opening an account for an unknown client.
	ErrOwnerNotFound = errors.New("owner not found")
)

// Account is a balance-holding entity owned by exactly one client. The balance
// itself lives in the ledger under Number.
type Account struct {
	Number     string
	CardNumber string
	OwnerID    string
	Status     string
	CreatedAt  time.Time
}

// Balance is a point-in-time read of an account's funds.
type Balance struct {
	AccountNumber string
	Amount        decimal.Decimal
	AsOf          time.Time
}
