package transfer

import (
	"errors"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/ledger"
	"github.com/DTigi/BankApplication/internal/session"
)

// Errors returned by Select and Execute. Every failure leaves balances and the
// staged selection exactly as they were.
var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrAccountNotFound      = errors.New("recipient account not found")
	ErrRecipientNotSelected = errors.New("no recipient selected")
	ErrInvalidRecipient     = errors.New("cannot transfer to the sending account")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNoSenderAccount      = errors.New("sender has no account")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	// ErrConcurrencyTimeout is retryable.
	ErrConcurrencyTimeout = errors.New("timed out waiting for a concurrent operation")
)

// translate maps errors of the underlying stores onto the transfer taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotFound):
		return ErrNotAuthenticated
	case errors.Is(err, session.ErrLockTimeout), errors.Is(err, ledger.ErrLockTimeout):
		return ErrConcurrencyTimeout
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, ledger.ErrSameAccount):
		return ErrInvalidRecipient
	case errors.Is(err, ledger.ErrInvalidAmount):
		return ErrInvalidAmount
	default:
		return err
	}
}

func lookupErr(err, notFound error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return notFound
	}
	return err
}
