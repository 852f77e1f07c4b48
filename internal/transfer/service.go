package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/ledger"
	"github.com/DTigi/BankApplication/internal/money"
	"github.com/DTigi/BankApplication/internal/notification"
	"github.com/DTigi/BankApplication/internal/session"
)

// Sessions serializes work on one session.
type Sessions interface {
	Update(ctx context.Context, token string, fn func(tx *session.Tx) error) error
}

// Clients is the part of the client registry used to resolve parties.
type Clients interface {
	Get(ctx context.Context, id string) (identity.Client, error)
	FindByUsername(ctx context.Context, username string) (identity.Client, error)
}

// Confirmation is returned by a successful Select. SenderBalance is a snapshot
// taken at selection time, not a reservation.
type Confirmation struct {
	RecipientName string
	AccountNumber string
	SenderBalance decimal.Decimal
}

// Receipt describes a committed transfer.
type Receipt struct {
	TransactionID    string
	Amount           decimal.Decimal
	SenderAccount    string
	RecipientAccount string
	RecipientName    string
	SenderBalance    decimal.Decimal
	CompletedAt      time.Time
}

// View is the transfer state of a session.
type View struct {
	State     State
	Selection *session.Selection
}

// Service stages recipients and executes transfers. All session work runs under
// the session lock, and account locks are only taken while it is held.
type Service struct {
	sessions Sessions
	clients  Clients
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService wires a transfer service. notifier may be nil.
func NewService(sessions Sessions, clients Clients, ledger ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{sessions: sessions, clients: clients, ledger: ledger, notifier: notifier}
}

// Select stages the recipient account for the next transfer of the session,
// replacing any earlier selection.
func (s *Service) Select(ctx context.Context, token, senderID, username, accountNumber string) (Confirmation, error) {
	username = strings.TrimSpace(username)
	accountNumber = strings.TrimSpace(accountNumber)

	var conf Confirmation
	err := s.sessions.Update(ctx, token, func(tx *session.Tx) error {
		if senderID == "" || tx.ClientID() != senderID {
			return ErrNotAuthenticated
		}

		recipient, err := s.clients.FindByUsername(ctx, username)
		if err != nil {
			return lookupErr(err, ErrRecipientNotFound)
		}
		if !recipient.OwnsAccount(accountNumber) {
			return ErrAccountNotFound
		}

		from, err := s.senderAccount(ctx, senderID)
		if err != nil {
			return err
		}
		if from == accountNumber {
			return ErrInvalidRecipient
		}

		balance, err := s.ledger.Balance(ctx, from)
		if err != nil {
			return fmt.Errorf("read sender balance: %w", err)
		}

		if err := advance(tx, EventSelected); err != nil {
			return err
		}
		tx.Stage(session.Selection{
			RecipientClientID: recipient.ID,
			RecipientName:     recipient.FullName,
			AccountNumber:     accountNumber,
		})
		conf = Confirmation{
			RecipientName: recipient.FullName,
			AccountNumber: accountNumber,
			SenderBalance: balance,
		}
		return nil
	})
	if err != nil {
		return Confirmation{}, translate(err)
	}
	return conf, nil
}

// Execute moves amount from the sender's account to the staged recipient. The
// selection is cleared by the ledger commit hook, so it disappears exactly
// when the funds move; on any failure it stays staged.
func (s *Service) Execute(ctx context.Context, token, senderID string, amount decimal.Decimal) (Receipt, error) {
	if err := money.ValidateTransfer(amount); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	var (
		receipt     Receipt
		recipientID string
	)
	err := s.sessions.Update(ctx, token, func(tx *session.Tx) error {
		if senderID == "" || tx.ClientID() != senderID {
			return ErrNotAuthenticated
		}
		if err := advance(tx, EventExecuted); err != nil {
			return err
		}
		sel, _ := tx.Selection()

		from, err := s.senderAccount(ctx, senderID)
		if err != nil {
			return err
		}
		if from == sel.AccountNumber {
			return ErrInvalidRecipient
		}

		posting, err := s.ledger.Transfer(ctx, from, sel.AccountNumber, amount, tx.ClearSelection)
		if err != nil {
			return err
		}

		recipientID = sel.RecipientClientID
		receipt = Receipt{
			TransactionID:    posting.ID,
			Amount:           posting.Amount,
			SenderAccount:    from,
			RecipientAccount: sel.AccountNumber,
			RecipientName:    sel.RecipientName,
			SenderBalance:    posting.FromBalance,
			CompletedAt:      posting.PostedAt,
		}
		return nil
	})
	if err != nil {
		return Receipt{}, translate(err)
	}

	if s.notifier != nil {
		msg := notification.TransferReceived(recipientID, receipt.RecipientAccount, receipt.TransactionID, receipt.Amount)
		// Delivery errors never undo a committed transfer.
		_ = s.notifier.Send(context.WithoutCancel(ctx), msg)
	}
	return receipt, nil
}

// Current reports the transfer state of the session.
func (s *Service) Current(ctx context.Context, token, senderID string) (View, error) {
	var view View
	err := s.sessions.Update(ctx, token, func(tx *session.Tx) error {
		if senderID == "" || tx.ClientID() != senderID {
			return ErrNotAuthenticated
		}
		sel, ok := tx.Selection()
		view.State = stateOf(ok)
		if ok {
			view.Selection = &sel
		}
		return nil
	})
	if err != nil {
		return View{}, translate(err)
	}
	return view, nil
}

func (s *Service) senderAccount(ctx context.Context, senderID string) (string, error) {
	sender, err := s.clients.Get(ctx, senderID)
	if err != nil {
		return "", lookupErr(err, ErrNotAuthenticated)
	}
	from, ok := sender.PrimaryAccount()
	if !ok {
		return "", ErrNoSenderAccount
	}
	return from, nil
}
