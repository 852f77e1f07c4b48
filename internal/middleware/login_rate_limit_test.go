package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRateLimitPerUsername(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	login := func(username string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, login("anna"))
	assert.Equal(t, fiber.StatusOK, login("Anna"))
	assert.Equal(t, fiber.StatusTooManyRequests, login("anna"))
	assert.Equal(t, fiber.StatusOK, login("boris"))

	assert.True(t, mr.Exists(loginRateLimitPrefix+"anna"))
	assert.Positive(t, mr.TTL(loginRateLimitPrefix+"anna"))
}
