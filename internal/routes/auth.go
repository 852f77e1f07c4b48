package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTigi/BankApplication/internal/auth"
	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/metrics"
)

type authRoutes struct {
	auth        *auth.Handler
	identity    *identity.Handler
	rateLimiter fiber.Handler
	sessionAuth fiber.Handler
	metrics     *metrics.Recorder
}

// RegisterAuthRoutes wires registration, login, logout and current identity.
func RegisterAuthRoutes(r fiber.Router, h authRoutes) {
	group := r.Group("/auth")
	group.Post("/register", countOnSuccess(h.identity.Register, h.metrics.ClientRegistered))
	group.Post("/login", h.rateLimiter, h.auth.Login)
	group.Post("/logout", h.auth.Logout)
	group.Get("/current", h.sessionAuth, h.auth.Current)
}
