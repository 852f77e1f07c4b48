package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/ledger"
	"github.com/DTigi/BankApplication/internal/money"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	ClientID string `json:"client_id"`
}

type accountResponse struct {
	Number     string    `json:"account_number"`
	CardNumber string    `json:"card_number"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	Balance    string    `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Create opens an account for the authenticated client. A client_id in the body
// must match the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("client_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	if req.ClientID == "" {
		req.ClientID = c.Query("clientId", uid)
	}
	if req.ClientID != uid {
		return fiber.NewError(http.StatusForbidden, "cannot open accounts for another client")
	}

	acct, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.ClientID})
	if err != nil {
		if errors.Is(err, ErrOwnerNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(accountResponse{
		Number:     acct.Number,
		CardNumber: acct.CardNumber,
		OwnerID:    acct.OwnerID,
		Status:     acct.Status,
		Balance:    money.Format(decimal.Zero),
		CreatedAt:  acct.CreatedAt,
	})
}

// Balance returns the balance of an account owned by the caller.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("client_id").(string)
	number := c.Params("number")
	acct, err := h.service.Get(c.UserContext(), number)
	if err != nil || acct.OwnerID != uid {
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	}
	balance, err := h.service.Balance(c.UserContext(), number)
	if err != nil {
		if errors.Is(err, ledger.ErrLockTimeout) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_number": number,
		"balance":        money.Format(balance.Amount),
		"timestamp":      balance.AsOf,
	})
}
