package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/money"
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

// PostgresLedger keeps balances in PostgreSQL. Row locks taken with FOR UPDATE in
// code order play the role of the in-memory per-account locks.
type PostgresLedger struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresLedger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &PostgresLedger{db: db, lockTimeout: lockTimeout}
}

// Open creates the ledger row for code with an opening balance.
func (l *PostgresLedger) Open(ctx context.Context, code string, balance decimal.Decimal) error {
	if err := money.ValidateBalance(balance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	_, err := l.db.Exec(ctx, `INSERT INTO ledger_accounts (code, balance) VALUES ($1, $2::numeric)`, code, balance.String())
	if isPgCode(err, pgUniqueViolation) {
		return ErrAccountExists
	}
	return err
}

// Close deletes the ledger row for code unless a posting references it.
func (l *PostgresLedger) Close(ctx context.Context, code string) error {
	tag, err := l.db.Exec(ctx, `DELETE FROM ledger_accounts a WHERE a.code = $1
        AND NOT EXISTS (SELECT 1 FROM ledger_postings p WHERE p.from_code = a.code OR p.to_code = a.code)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := l.Balance(ctx, code); err != nil {
		return err
	}
	return ErrAccountInUse
}

// Balance returns the current balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT balance::text FROM ledger_accounts WHERE code = $1`, code).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Transfer moves amount inside one database transaction. Both rows are locked in
// ascending code order before either balance is read; onCommit runs after the
// transaction commits.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode string, amount decimal.Decimal, onCommit CommitHook) (Posting, error) {
	if err := money.ValidateTransfer(amount); err != nil {
		return Posting{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if fromCode == toCode {
		return Posting{}, ErrSameAccount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Posting{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())); err != nil {
		return Posting{}, err
	}

	balances, err := lockAccounts(ctx, tx, fromCode, toCode)
	if err != nil {
		return Posting{}, err
	}
	fromBalance, ok := balances[fromCode]
	if !ok {
		return Posting{}, fmt.Errorf("from account %s: %w", fromCode, ErrAccountNotFound)
	}
	toBalance, ok := balances[toCode]
	if !ok {
		return Posting{}, fmt.Errorf("to account %s: %w", toCode, ErrAccountNotFound)
	}

	if fromBalance.LessThan(amount) {
		return Posting{}, ErrInsufficientFunds
	}

	const move = `UPDATE ledger_accounts SET balance = balance + $2::numeric, updated_at = NOW() WHERE code = $1`
	if _, err := tx.Exec(ctx, move, fromCode, amount.Neg().String()); err != nil {
		return Posting{}, mapLockErr(err)
	}
	if _, err := tx.Exec(ctx, move, toCode, amount.String()); err != nil {
		return Posting{}, mapLockErr(err)
	}

	posting := Posting{
		ID:          uuid.NewString(),
		FromCode:    fromCode,
		ToCode:      toCode,
		Amount:      amount,
		FromBalance: fromBalance.Sub(amount),
		ToBalance:   toBalance.Add(amount),
		PostedAt:    time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `INSERT INTO ledger_postings (id, from_code, to_code, amount, posted_at)
        VALUES ($1, $2, $3, $4::numeric, $5)`, uuid.MustParse(posting.ID), fromCode, toCode, amount.String(), posting.PostedAt); err != nil {
		return Posting{}, err
	}

	// A caller giving up now must not turn a commit the server accepted into a reported failure.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return Posting{}, err
	}

	if onCommit != nil {
		onCommit()
	}
	return posting, nil
}

func lockAccounts(ctx context.Context, tx pgx.Tx, codes ...string) (map[string]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `SELECT code, balance::text FROM ledger_accounts
        WHERE code = ANY($1) ORDER BY code FOR UPDATE`, codes)
	if err != nil {
		return nil, mapLockErr(err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal, len(codes))
	for rows.Next() {
		var code, raw string
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode balance for %s: %w", code, err)
		}
		out[code] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, mapLockErr(err)
	}
	return out, nil
}

func mapLockErr(err error) error {
	if isPgCode(err, pgLockNotAvailable) {
		return ErrLockTimeout
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
