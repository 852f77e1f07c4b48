package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/ledger"
	"github.com/DTigi/BankApplication/internal/money"
)

const maxNumberAttempts = 5

// Owners is the slice of the client registry the account service needs.
type Owners interface {
	Get(ctx context.Context, id string) (identity.Client, error)
	AttachAccount(ctx context.Context, clientID, accountID string) error
}

// Service exposes account operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
	owners Owners

	newNumber func() (string, error)
	newCard   func() (string, error)
}

// NewService builds an account service instance.
func NewService(repo Repository, ledger ledger.Ledger, owners Owners) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		owners:    owners,
		newNumber: newAccountNumber,
		newCard:   newCardNumber,
	}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	OwnerID        string
	OpeningBalance decimal.Decimal
}

// Create opens an account for an existing client. Either the ledger balance,
// the metadata and the owner link all exist afterwards or none of them do.
// Number and card collisions are retried with fresh numbers.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	if _, err := s.owners.Get(ctx, input.OwnerID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Account{}, ErrOwnerNotFound
		}
		return Account{}, err
	}
	if err := money.ValidateBalance(input.OpeningBalance); err != nil {
		return Account{}, fmt.Errorf("%w: %w", ledger.ErrInvalidAmount, err)
	}

	for attempt := 0; ; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return Account{}, err
		}
		card, err := s.newCard()
		if err != nil {
			return Account{}, err
		}
		acct := Account{
			Number:     number,
			CardNumber: card,
			OwnerID:    input.OwnerID,
			Status:     statusActive,
			CreatedAt:  time.Now().UTC(),
		}

		err = s.provision(ctx, acct, input.OpeningBalance)
		if errors.Is(err, ErrExists) && attempt < maxNumberAttempts {
			continue
		}
		if err != nil {
			return Account{}, err
		}
		return acct, nil
	}
}

// provision stores the metadata first so number and card collisions surface
// before the ledger is touched. Later failures undo the earlier writes.
func (s *Service) provision(ctx context.Context, acct Account, opening decimal.Decimal) error {
	if p, ok := s.repo.(Provisioner); ok {
		return p.Provision(ctx, acct, opening)
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return err
	}
	undo := context.WithoutCancel(ctx)

	if err := s.ledger.Open(ctx, acct.Number, opening); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			err = ErrExists
		} else {
			err = fmt.Errorf("open ledger account: %w", err)
		}
		return errors.Join(err, s.repo.Delete(undo, acct.Number))
	}

	if err := s.owners.AttachAccount(ctx, acct.OwnerID, acct.Number); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			err = ErrOwnerNotFound
		} else {
			err = fmt.Errorf("attach account to owner: %w", err)
		}
		return errors.Join(err, s.ledger.Close(undo, acct.Number), s.repo.Delete(undo, acct.Number))
	}
	return nil
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, number string) (Account, error) {
	return s.repo.Get(ctx, number)
}

// Balance returns the ledger balance for the account.
func (s *Service) Balance(ctx context.Context, number string) (Balance, error) {
	acct, err := s.repo.Get(ctx, number)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, acct.Number)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountNumber: acct.Number, Amount: amount, AsOf: time.Now().UTC()}, nil
}
