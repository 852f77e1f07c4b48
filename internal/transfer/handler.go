package transfer

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/metrics"
	"github.com/DTigi/BankApplication/internal/money"
)

// Handler exposes the transfer endpoints.
type Handler struct {
	service *Service
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewHandler constructs a transfer handler. rec may be nil.
func NewHandler(service *Service, rec *metrics.Recorder, logger *slog.Logger) *Handler {
	return &Handler{service: service, metrics: rec, logger: logger}
}

type selectRequest struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
}

type transferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type selectionResponse struct {
	RecipientName string    `json:"recipient_name"`
	AccountNumber string    `json:"account_number"`
	SelectedAt    time.Time `json:"selected_at"`
}

// SelectRecipient stages the recipient of the next transfer.
func (h *Handler) SelectRecipient(c *fiber.Ctx) error {
	start := time.Now()
	var req selectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.AccountNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "username and account_number are required")
	}

	clientID, token := caller(c)
	conf, err := h.service.Select(c.UserContext(), token, clientID, req.Username, req.AccountNumber)
	h.metrics.ObserveSelection(outcome(err), time.Since(start))
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"recipient_name": conf.RecipientName,
		"account_number": conf.AccountNumber,
		"sender_balance": money.Format(conf.SenderBalance),
	})
}

// Selection reports the staged recipient, if any.
func (h *Handler) Selection(c *fiber.Ctx) error {
	clientID, token := caller(c)
	view, err := h.service.Current(c.UserContext(), token, clientID)
	if err != nil {
		return h.fail(c, err)
	}

	resp := fiber.Map{"state": view.State}
	if view.Selection != nil {
		resp["recipient"] = selectionResponse{
			RecipientName: view.Selection.RecipientName,
			AccountNumber: view.Selection.AccountNumber,
			SelectedAt:    view.Selection.SelectedAt,
		}
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Transfer executes the staged transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	start := time.Now()
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	clientID, token := caller(c)
	receipt, err := h.service.Execute(c.UserContext(), token, clientID, req.Amount)
	h.metrics.ObserveTransfer(outcome(err), req.Amount, time.Since(start))
	if err != nil {
		return h.fail(c, err)
	}

	h.logger.InfoContext(c.UserContext(), "transfer committed",
		slog.String("transaction_id", receipt.TransactionID),
		slog.String("client_id", clientID),
		slog.String("from", receipt.SenderAccount),
		slog.String("to", receipt.RecipientAccount),
		slog.String("amount", money.Format(receipt.Amount)),
	)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id":    receipt.TransactionID,
		"amount":            money.Format(receipt.Amount),
		"recipient_name":    receipt.RecipientName,
		"recipient_account": receipt.RecipientAccount,
		"sender_balance":    money.Format(receipt.SenderBalance),
		"completed_at":      receipt.CompletedAt,
	})
}

func caller(c *fiber.Ctx) (clientID, token string) {
	clientID, _ = c.Locals("client_id").(string)
	token, _ = c.Locals("session_token").(string)
	return clientID, token
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status == http.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.UserContext(), "transfer request failed", slog.String("error", err.Error()))
	}
	return fiber.NewError(status, err.Error())
}

// StatusCode maps a transfer error onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidRecipient):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRecipientNotFound), errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrNoSenderAccount):
		return http.StatusNotFound
	case errors.Is(err, ErrRecipientNotSelected):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConcurrencyTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrConcurrencyTimeout):
		return "timeout"
	case errors.Is(err, ErrRecipientNotSelected):
		return "not_selected"
	case errors.Is(err, ErrNotAuthenticated):
		return "unauthenticated"
	default:
		return metrics.OutcomeFailure
	}
}
