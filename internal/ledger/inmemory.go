package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/DTigi/BankApplication/internal/money"
)

// account is an independently lockable balance. The semaphore has weight one and
// guards balance for reads and writes alike.
type account struct {
	lock    *semaphore.Weighted
	balance decimal.Decimal
	posted  bool
}

func (a *account) acquire(ctx context.Context) error {
	if err := a.lock.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	return nil
}

func (a *account) release() {
	a.lock.Release(1)
}

type inMemoryLedger struct {
	// mu guards map membership only; balances are guarded per account.
	mu          sync.RWMutex
	accounts    map[string]*account
	lockTimeout time.Duration
}

// NewInMemory creates an in-process ledger with one lock per account. A zero
// lockTimeout selects DefaultLockTimeout.
func NewInMemory(lockTimeout time.Duration) Ledger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &inMemoryLedger{
		accounts:    make(map[string]*account),
		lockTimeout: lockTimeout,
	}
}

func (l *inMemoryLedger) Open(_ context.Context, code string, balance decimal.Decimal) error {
	if err := money.ValidateBalance(balance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[code]; exists {
		return ErrAccountExists
	}
	l.accounts[code] = &account{lock: semaphore.NewWeighted(1), balance: balance}
	return nil
}

// Close treats a locked account as in use rather than waiting for it.
func (l *inMemoryLedger) Close(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[code]
	if !ok {
		return ErrAccountNotFound
	}
	if !acct.lock.TryAcquire(1) {
		return ErrAccountInUse
	}
	defer acct.release()
	if acct.posted {
		return ErrAccountInUse
	}
	delete(l.accounts, code)
	return nil
}

func (l *inMemoryLedger) lookup(code string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[code]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

func (l *inMemoryLedger) Balance(ctx context.Context, code string) (decimal.Decimal, error) {
	acct, err := l.lookup(code)
	if err != nil {
		return decimal.Zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	if err := acct.acquire(ctx); err != nil {
		return decimal.Zero, err
	}
	defer acct.release()
	return acct.balance, nil
}

// Transfer holds both account locks, taken in ascending code order, for the
// whole read-validate-mutate sequence. onCommit runs before either lock is
// released. Once both locks are held the posting no longer observes ctx.
func (l *inMemoryLedger) Transfer(ctx context.Context, fromCode, toCode string, amount decimal.Decimal, onCommit CommitHook) (Posting, error) {
	if err := money.ValidateTransfer(amount); err != nil {
		return Posting{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if fromCode == toCode {
		return Posting{}, ErrSameAccount
	}

	from, err := l.lookup(fromCode)
	if err != nil {
		return Posting{}, fmt.Errorf("from account %s: %w", fromCode, err)
	}
	to, err := l.lookup(toCode)
	if err != nil {
		return Posting{}, fmt.Errorf("to account %s: %w", toCode, err)
	}

	first, second := from, to
	if toCode < fromCode {
		first, second = to, from
	}

	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	if err := first.acquire(lockCtx); err != nil {
		return Posting{}, err
	}
	defer first.release()
	if err := second.acquire(lockCtx); err != nil {
		return Posting{}, err
	}
	defer second.release()

	if from.balance.LessThan(amount) {
		return Posting{}, ErrInsufficientFunds
	}

	from.balance = from.balance.Sub(amount)
	to.balance = to.balance.Add(amount)
	from.posted, to.posted = true, true

	if onCommit != nil {
		onCommit()
	}

	return Posting{
		ID:          uuid.NewString(),
		FromCode:    fromCode,
		ToCode:      toCode,
		Amount:      amount,
		FromBalance: from.balance,
		ToBalance:   to.balance,
		PostedAt:    time.Now().UTC(),
	}, nil
}
