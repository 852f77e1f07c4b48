package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTigi/BankApplication/internal/logging"
)

type idempotencyApp struct {
	app   *fiber.App
	calls atomic.Int32
	fail  atomic.Bool
}

func setupIdempotencyApp(t *testing.T) *idempotencyApp {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	ia := &idempotencyApp{app: fiber.New()}
	ia.app.Use(func(c *fiber.Ctx) error {
		c.Locals(localClientID, c.Get("X-Client"))
		return c.Next()
	})
	ia.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ia.app.Post("/transfer", func(c *fiber.Ctx) error {
		n := ia.calls.Add(1)
		if ia.fail.Load() {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "insufficient funds")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": n})
	})
	return ia
}

func (ia *idempotencyApp) post(t *testing.T, client, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/transfer", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Client", client)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := ia.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header.Get(idempotencyReplayHeader)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	ia := setupIdempotencyApp(t)
	status, _, _ := ia.post(t, "client-1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, int32(0), ia.calls.Load())
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	ia := setupIdempotencyApp(t)

	status, first, replayed := ia.post(t, "client-1", "abc123")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, replayed)

	status, second, replayed := ia.post(t, "client-1", "abc123")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first, second)
	assert.Equal(t, "true", replayed)
	assert.Equal(t, int32(1), ia.calls.Load())
}

func TestIdempotencyKeysAreScopedPerClient(t *testing.T) {
	ia := setupIdempotencyApp(t)

	_, first, _ := ia.post(t, "client-1", "same")
	_, second, replayed := ia.post(t, "client-2", "same")
	assert.NotEqual(t, first, second)
	assert.Empty(t, replayed)
	assert.Equal(t, int32(2), ia.calls.Load())
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	ia := setupIdempotencyApp(t)

	ia.fail.Store(true)
	status, _, _ := ia.post(t, "client-1", "retry-me")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	ia.fail.Store(false)
	status, _, replayed := ia.post(t, "client-1", "retry-me")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, replayed)
	assert.Equal(t, int32(2), ia.calls.Load())
}

func TestIdempotencyWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/transfer", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/transfer", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
