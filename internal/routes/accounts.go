package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTigi/BankApplication/internal/account"
	"github.com/DTigi/BankApplication/internal/metrics"
)

// RegisterAccountRoutes wires account endpoints on an authenticated router.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, rec *metrics.Recorder) {
	group := r.Group("/accounts")
	group.Post("/", countOnSuccess(h.Create, rec.AccountCreated))
	group.Get("/:number/balance", h.Balance)
}
