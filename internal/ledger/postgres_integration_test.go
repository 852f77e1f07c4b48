package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationSchema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	code TEXT PRIMARY KEY,
	balance NUMERIC(24,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS ledger_postings (
	id UUID PRIMARY KEY,
	from_code TEXT NOT NULL REFERENCES ledger_accounts (code),
	to_code TEXT NOT NULL REFERENCES ledger_accounts (code),
	amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
	posted_at TIMESTAMPTZ NOT NULL
);`

func postgresLedger(t *testing.T) *PostgresLedger {
	t.Helper()
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "true" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=true to run this integration test")
	}
	_ = godotenv.Load("../../.env")
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, integrationSchema)
	require.NoError(t, err)
	return NewPostgresLedger(pool, time.Second)
}

func TestPostgresLedger_ConcurrentOverdraftRace(t *testing.T) {
	l := postgresLedger(t)
	ctx := context.Background()
	from, to := "it-"+uuid.NewString(), "it-"+uuid.NewString()
	require.NoError(t, l.Open(ctx, from, dec("150")))
	require.NoError(t, l.Open(ctx, to, dec("0")))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, from, to, dec("100"), nil); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0], ErrInsufficientFunds), "got %v", failures[0])

	bal, err := l.Balance(ctx, from)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("50")))
}

func TestPostgresLedger_OpenTwice(t *testing.T) {
	l := postgresLedger(t)
	ctx := context.Background()
	code := "it-" + uuid.NewString()
	require.NoError(t, l.Open(ctx, code, dec("1")))
	assert.ErrorIs(t, l.Open(ctx, code, dec("1")), ErrAccountExists)

	_, err := l.Balance(ctx, "it-missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPostgresLedger_Close(t *testing.T) {
	l := postgresLedger(t)
	ctx := context.Background()
	unused := "it-" + uuid.NewString()
	from, to := "it-"+uuid.NewString(), "it-"+uuid.NewString()
	require.NoError(t, l.Open(ctx, unused, dec("5")))
	require.NoError(t, l.Open(ctx, from, dec("5")))
	require.NoError(t, l.Open(ctx, to, dec("0")))

	require.NoError(t, l.Close(ctx, unused))
	assert.ErrorIs(t, l.Close(ctx, unused), ErrAccountNotFound)

	_, err := l.Transfer(ctx, from, to, dec("1"), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, l.Close(ctx, from), ErrAccountInUse)
}
