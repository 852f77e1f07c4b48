package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/transfer"
)

// RegisterTransactionRoutes wires the recipient selection and transfer flow on
// an authenticated router. idempotency guards the transfer itself.
func RegisterTransactionRoutes(r fiber.Router, h *transfer.Handler, clients *identity.Handler, idempotency fiber.Handler) {
	group := r.Group("/transactions")
	group.Get("/clients", clients.List)
	group.Post("/select-recipient", h.SelectRecipient)
	group.Get("/selection", h.Selection)
	group.Post("/transfer", idempotency, h.Transfer)
}
