package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists account metadata.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, number string) (Account, error)
	Delete(ctx context.Context, number string) error
}

// Provisioner writes a new account's ledger balance, metadata and owner link as
// one unit. Repositories that implement it make Service.Create atomic.
type Provisioner interface {
	Provision(ctx context.Context, acct Account, opening decimal.Decimal) error
}

const insertAccount = `INSERT INTO accounts (number, card_number, owner_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	ownerID, err := uuid.Parse(acct.OwnerID)
	if err != nil {
		return ErrOwnerNotFound
	}
	_, err = r.db.Exec(ctx, insertAccount, acct.Number, acct.CardNumber, ownerID, acct.Status, acct.CreatedAt.UTC())
	return mapWriteErr(err)
}

// Provision opens the ledger row, inserts the account and appends it to the
// owner's list in one transaction.
func (r *PostgresRepository) Provision(ctx context.Context, acct Account, opening decimal.Decimal) error {
	ownerID, err := uuid.Parse(acct.OwnerID)
	if err != nil {
		return ErrOwnerNotFound
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO ledger_accounts (code, balance) VALUES ($1, $2::numeric)`,
		acct.Number, opening.String()); err != nil {
		return mapWriteErr(err)
	}
	if _, err := tx.Exec(ctx, insertAccount, acct.Number, acct.CardNumber, ownerID, acct.Status, acct.CreatedAt.UTC()); err != nil {
		return mapWriteErr(err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO client_accounts (client_id, account_id) VALUES ($1, $2)`,
		ownerID, acct.Number); err != nil {
		return mapWriteErr(err)
	}
	return tx.Commit(ctx)
}

// Delete removes an account record that no client lists yet.
func (r *PostgresRepository) Delete(ctx context.Context, number string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE number = $1`, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches account metadata by number.
func (r *PostgresRepository) Get(ctx context.Context, number string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT number, card_number, owner_id, status, created_at
        FROM accounts WHERE number = $1`, number)
	var (
		acct      Account
		ownerID   uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&acct.Number, &acct.CardNumber, &ownerID, &acct.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.OwnerID = ownerID.String()
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrExists
		case "23503":
			return ErrOwnerNotFound
		}
	}
	return err
}
