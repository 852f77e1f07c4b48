package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

const disabled = "disabled"

// RegisterHealthRoutes adds health, greeting and metrics endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := disabled
		redisStatus := disabled

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if (dbStatus != "ok" && dbStatus != disabled) || (redisStatus != "ok" && redisStatus != disabled) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	app.Get("/hello", func(c *fiber.Ctx) error {
		return c.SendString(fmt.Sprintf("Hello, %s!", c.Query("name", "Guest")))
	})

	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
}
