package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ClientView is the public representation of a client. It never carries the
// password hash.
type ClientView struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	AccountIDs []string  `json:"accounts"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewClientView converts a Client for responses.
func NewClientView(c Client) ClientView {
	accounts := c.AccountIDs
	if accounts == nil {
		accounts = []string{}
	}
	return ClientView{
		ID:         c.ID,
		Username:   c.Username,
		FullName:   c.FullName,
		Phone:      c.Phone,
		AccountIDs: accounts,
		CreatedAt:  c.CreatedAt,
	}
}

// Register handles client onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	client, err := h.service.Register(c.UserContext(), Registration{
		FullName: req.FullName,
		Phone:    req.Phone,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidRegistration):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(NewClientView(client))
}

// List returns every registered client.
func (h *Handler) List(c *fiber.Ctx) error {
	clients, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]ClientView, 0, len(clients))
	for _, client := range clients {
		out = append(out, NewClientView(client))
	}
	return c.Status(http.StatusOK).JSON(out)
}
