package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLockTimeout bounds how long an operation waits for an account lock.
const DefaultLockTimeout = 2 * time.Second

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when a code has no ledger account.
	ErrAccountNotFound = errors.New("ledger account not found")

	// ErrAccountExists is returned when opening a code twice.
	ErrAccountExists = errors.New("ledger account already exists")

	// ErrSameAccount rejects postings whose source and destination coincide.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrInvalidAmount wraps the money validation failure for a posting.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAccountInUse rejects closing an account that took part in a posting.
	ErrAccountInUse = errors.New("ledger account has postings")

	// ErrLockTimeout is returned when an account lock could not be acquired in time.
	// The caller may retry.
	ErrLockTimeout = errors.New("timed out waiting for account lock")
)

// Posting captures the outcome of a committed transfer between two accounts.
type Posting struct {
	ID          string
	FromCode    string
	ToCode      string
	Amount      decimal.Decimal
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
	PostedAt    time.Time
}

// CommitHook runs once a posting is durable in the backend and while the caller
// still has exclusive access to the posting's outcome. It must not block or fail.
type CommitHook func()

// Ledger owns account balances. Balances never go below zero and only change
// through Transfer.
type Ledger interface {
	Open(ctx context.Context, code string, balance decimal.Decimal) error
	Balance(ctx context.Context, code string) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromCode, toCode string, amount decimal.Decimal, onCommit CommitHook) (Posting, error)
	// Close removes an account that never took part in a posting. It undoes an
	// Open whose surrounding operation failed.
	Close(ctx context.Context, code string) error
}
