package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/missing", func(c *fiber.Ctx) error {
		c.Locals(localClientID, "client-1")
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/missing", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(requestIDHeader))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "/missing", record["path"])
	assert.Equal(t, float64(fiber.StatusNotFound), record["status"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "client-1", record["client_id"])
}

func TestRequestIDGenerated(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)
}
