package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/DTigi/BankApplication/internal/auth"
)

// Locals keys set by SessionAuth.
const (
	localClientID     = "client_id"
	localSessionToken = "session_token"
)

// Authenticator resolves an access token to the client and session behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (clientID, sessionToken string, err error)
}

// SessionAuth requires a bearer token bound to a live session and stores the
// client id and session token in the request locals.
func SessionAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		clientID, sessionToken, err := authn.Authenticate(c.UserContext(), token)
		if err != nil {
			status := auth.StatusCode(err)
			if status == http.StatusServiceUnavailable {
				c.Set(fiber.HeaderRetryAfter, "1")
			}
			if errors.Is(err, auth.ErrInvalidToken) {
				return fiber.NewError(status, auth.ErrInvalidToken.Error())
			}
			return fiber.NewError(status, err.Error())
		}

		c.Locals(localClientID, clientID)
		c.Locals(localSessionToken, sessionToken)
		return c.Next()
	}
}
