package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/metrics"
	"github.com/DTigi/BankApplication/internal/session"
)

// Handler exposes login, logout and current identity.
type Handler struct {
	svc     *Service
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewHandler constructs the auth handler. rec may be nil.
func NewHandler(svc *Service, rec *metrics.Recorder, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, metrics: rec, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ClientID    string    `json:"client_id"`
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login validates credentials and opens a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Login(c.UserContext(), identity.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		h.metrics.ObserveLogin(metrics.OutcomeFailure)
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		h.logger.ErrorContext(c.UserContext(), "login failed", slog.String("error", err.Error()))
		return fiber.NewError(http.StatusInternalServerError, "login failed")
	}
	h.metrics.ObserveLogin(metrics.OutcomeSuccess)
	h.metrics.SetActiveSessions(h.svc.ActiveSessions())
	h.logger.InfoContext(c.UserContext(), "client logged in", slog.String("client_id", res.Client.ID))

	return c.Status(http.StatusOK).JSON(loginResponse{
		ClientID:    res.Client.ID,
		Username:    res.Client.Username,
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
	})
}

// Logout closes the session behind the bearer token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	if err := h.svc.Logout(token); err != nil {
		return fiber.NewError(http.StatusUnauthorized, ErrInvalidToken.Error())
	}
	h.metrics.ObserveLogout()
	h.metrics.SetActiveSessions(h.svc.ActiveSessions())
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Current returns the authenticated client.
func (h *Handler) Current(c *fiber.Ctx) error {
	uid, _ := c.Locals("client_id").(string)
	client, err := h.svc.Current(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(identity.NewClientView(client))
}

// StatusCode maps errors from Authenticate onto HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, session.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
