package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists clients and the ordered list of accounts each one owns.
type Repository interface {
	Create(ctx context.Context, client Client) error
	FindByUsername(ctx context.Context, username string) (Client, error)
	FindByID(ctx context.Context, id string) (Client, error)
	AttachAccount(ctx context.Context, clientID, accountID string) error
	List(ctx context.Context) ([]Client, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed client repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new client.
func (r *PostgresRepository) Create(ctx context.Context, client Client) error {
	clientID, err := uuid.Parse(client.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO clients (id, username, full_name, phone, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, clientID, client.Username, client.FullName, client.Phone, client.PasswordHash, client.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

// FindByUsername fetches a client by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Client, error) {
	return r.findOne(ctx, `SELECT id, username, full_name, phone, password_hash, created_at FROM clients WHERE username = $1`, username)
}

// FindByID fetches a client by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return Client{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT id, username, full_name, phone, password_hash, created_at FROM clients WHERE id = $1`, clientID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (Client, error) {
	client, err := scanClient(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT account_id FROM client_accounts WHERE client_id = $1 ORDER BY position`, uuid.MustParse(client.ID))
	if err != nil {
		return Client{}, err
	}
	client.AccountIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Client{}, err
	}
	return client, nil
}

// AttachAccount appends accountID to the client's account list.
func (r *PostgresRepository) AttachAccount(ctx context.Context, clientID, accountID string) error {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `INSERT INTO client_accounts (client_id, account_id) VALUES ($1, $2)`, id, accountID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

// List returns every client with its accounts, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, full_name, phone, password_hash, created_at
        FROM clients ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Client, error) {
		return scanClient(row)
	})
	if err != nil {
		return nil, err
	}

	accRows, err := r.db.Query(ctx, `SELECT client_id, account_id FROM client_accounts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer accRows.Close()
	owned := make(map[string][]string)
	for accRows.Next() {
		var (
			clientID  uuid.UUID
			accountID string
		)
		if err := accRows.Scan(&clientID, &accountID); err != nil {
			return nil, err
		}
		owned[clientID.String()] = append(owned[clientID.String()], accountID)
	}
	if err := accRows.Err(); err != nil {
		return nil, err
	}

	for i := range clients {
		clients[i].AccountIDs = owned[clients[i].ID]
	}
	return clients, nil
}

func scanClient(row pgx.Row) (Client, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		client    Client
	)
	if err := row.Scan(&id, &client.Username, &client.FullName, &client.Phone, &client.PasswordHash, &createdAt); err != nil {
		return Client{}, err
	}
	client.ID = id.String()
	client.CreatedAt = createdAt.UTC()
	return client, nil
}
