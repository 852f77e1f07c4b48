package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// SeedBalance is a test helper that overwrites the balance of an account held by
// the in-memory ledger, opening it when absent.
func SeedBalance(l Ledger, code string, amount decimal.Decimal) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	acct, exists := mem.accounts[code]
	if !exists {
		acct = &account{lock: semaphore.NewWeighted(1)}
		mem.accounts[code] = acct
	}
	mem.mu.Unlock()

	if err := acct.lock.Acquire(context.Background(), 1); err != nil {
		return
	}
	acct.balance = amount
	acct.release()
}
