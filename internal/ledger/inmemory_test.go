package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openPair(t *testing.T, l Ledger, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, "acct-a", dec(a)))
	require.NoError(t, l.Open(ctx, "acct-b", dec(b)))
}

func balanceOf(t *testing.T, l Ledger, code string) decimal.Decimal {
	t.Helper()
	bal, err := l.Balance(context.Background(), code)
	require.NoError(t, err)
	return bal
}

func TestInMemoryLedger_TransferMovesExactAmount(t *testing.T) {
	l := NewInMemory(0)
	openPair(t, l, "500", "200")

	committed := false
	res, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("300"), func() { committed = true })
	require.NoError(t, err)

	assert.True(t, committed)
	assert.True(t, res.Amount.Equal(dec("300")))
	assert.True(t, res.FromBalance.Equal(dec("200")), "from balance %s", res.FromBalance)
	assert.True(t, res.ToBalance.Equal(dec("500")), "to balance %s", res.ToBalance)
	assert.NotEmpty(t, res.ID)
	assert.True(t, balanceOf(t, l, "acct-a").Equal(dec("200")))
	assert.True(t, balanceOf(t, l, "acct-b").Equal(dec("500")))
}

func TestInMemoryLedger_InsufficientFundsLeavesBalances(t *testing.T) {
	l := NewInMemory(0)
	openPair(t, l, "500", "0")

	committed := false
	_, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("600"), func() { committed = true })
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.False(t, committed)
	assert.True(t, balanceOf(t, l, "acct-a").Equal(dec("500")))
	assert.True(t, balanceOf(t, l, "acct-b").IsZero())
}

func TestInMemoryLedger_RejectsInvalidPostings(t *testing.T) {
	l := NewInMemory(0)
	openPair(t, l, "100", "100")
	ctx := context.Background()

	_, err := l.Transfer(ctx, "acct-a", "acct-a", dec("1"), nil)
	assert.ErrorIs(t, err, ErrSameAccount)

	_, err = l.Transfer(ctx, "acct-a", "acct-b", dec("0"), nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Transfer(ctx, "acct-a", "acct-b", dec("0.005"), nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Transfer(ctx, "acct-a", "missing", dec("1"), nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.ErrorIs(t, l.Open(ctx, "acct-a", decimal.Zero), ErrAccountExists)
	assert.ErrorIs(t, l.Open(ctx, "acct-c", dec("-1")), ErrInvalidAmount)
}

func TestInMemoryLedger_ConcurrentOverdraftRace(t *testing.T) {
	l := NewInMemory(0)
	openPair(t, l, "150", "0")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("100"), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.True(t, balanceOf(t, l, "acct-a").Equal(dec("50")))
	assert.True(t, balanceOf(t, l, "acct-b").Equal(dec("100")))
}

func TestInMemoryLedger_OppositeDirectionsDoNotDeadlock(t *testing.T) {
	l := NewInMemory(5 * time.Second)
	openPair(t, l, "1000", "1000")

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("7.25"), nil)
			if err != nil && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := l.Transfer(context.Background(), "acct-b", "acct-a", dec("3.10"), nil)
			if err != nil && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	a := balanceOf(t, l, "acct-a")
	b := balanceOf(t, l, "acct-b")
	assert.True(t, a.Add(b).Equal(dec("2000")), "ledger not balanced: %s + %s", a, b)
	assert.False(t, a.IsNegative())
	assert.False(t, b.IsNegative())
}

func TestInMemoryLedger_LockTimeout(t *testing.T) {
	l := NewInMemory(30 * time.Millisecond)
	openPair(t, l, "100", "0")

	held := l.(*inMemoryLedger).accounts["acct-b"]
	require.NoError(t, held.lock.Acquire(context.Background(), 1))

	_, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("10"), nil)
	require.ErrorIs(t, err, ErrLockTimeout)

	held.release()
	assert.True(t, balanceOf(t, l, "acct-a").Equal(dec("100")))
	assert.True(t, balanceOf(t, l, "acct-b").IsZero())
}

func TestInMemoryLedger_CommitHookRunsWhileLocked(t *testing.T) {
	l := NewInMemory(30 * time.Millisecond)
	openPair(t, l, "100", "0")

	var readErr error
	_, err := l.Transfer(context.Background(), "acct-a", "acct-b", dec("40"), func() {
		_, readErr = l.Balance(context.Background(), "acct-b")
	})
	require.NoError(t, err)
	assert.ErrorIs(t, readErr, ErrLockTimeout)
}

func TestInMemoryLedger_CanceledCallerMutatesNothing(t *testing.T) {
	l := NewInMemory(time.Second)
	openPair(t, l, "100", "0")

	held := l.(*inMemoryLedger).accounts["acct-a"]
	require.NoError(t, held.lock.Acquire(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Transfer(ctx, "acct-a", "acct-b", dec("10"), nil)
	require.ErrorIs(t, err, context.Canceled)

	held.release()
	assert.True(t, balanceOf(t, l, "acct-a").Equal(dec("100")))
}

func TestSeedBalance(t *testing.T) {
	l := NewInMemory(0)
	SeedBalance(l, "acct-x", dec("42.50"))
	assert.True(t, balanceOf(t, l, "acct-x").Equal(dec("42.5")))
}

func TestInMemoryLedger_Close(t *testing.T) {
	l := NewInMemory(0)
	ctx := context.Background()
	openPair(t, l, "500", "0")
	require.NoError(t, l.Open(ctx, "acct-c", dec("10")))

	require.NoError(t, l.Close(ctx, "acct-c"))
	_, err := l.Balance(ctx, "acct-c")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, l.Close(ctx, "acct-c"), ErrAccountNotFound)
	require.NoError(t, l.Open(ctx, "acct-c", dec("0")), "closed code can be opened again")

	_, err = l.Transfer(ctx, "acct-a", "acct-b", dec("1"), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, l.Close(ctx, "acct-a"), ErrAccountInUse)
	assert.ErrorIs(t, l.Close(ctx, "acct-b"), ErrAccountInUse)
	assert.True(t, balanceOf(t, l, "acct-b").Equal(dec("1")))
}
