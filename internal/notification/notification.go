package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

const (
	// KindTransferReceived tells a client that funds arrived on one of their accounts.
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
	Attributes  map[string]string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// TransferReceived builds the message sent to the owner of a credited account.
func TransferReceived(recipientID, accountNumber, transactionID string, amount decimal.Decimal) Message {
	return Message{
		Kind:        KindTransferReceived,
		Destination: recipientID,
		Body:        fmt.Sprintf("You received %s on account %s", amount.StringFixed(2), accountNumber),
		Attributes: map[string]string{
			"account_number": accountNumber,
			"transaction_id": transactionID,
			"amount":         amount.StringFixed(2),
		},
	}
}

// LoggerNotifier writes notifications to the logger instead of a real channel.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
