package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/DTigi/BankApplication/internal/account"
	"github.com/DTigi/BankApplication/internal/auth"
	"github.com/DTigi/BankApplication/internal/config"
	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/ledger"
	"github.com/DTigi/BankApplication/internal/metrics"
	"github.com/DTigi/BankApplication/internal/middleware"
	"github.com/DTigi/BankApplication/internal/notification"
	"github.com/DTigi/BankApplication/internal/session"
	"github.com/DTigi/BankApplication/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// are optional in development.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// AccessLog toggles the plain text access line.
	AccessLog bool
}

// Services are the domain services built by Setup, exposed for seeding.
type Services struct {
	Identity  *identity.Service
	Accounts  *account.Service
	Sessions  *session.Store
	Auth      *auth.Service
	Transfers *transfer.Service
	Ledger    ledger.Ledger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	svcs := newServices(d)

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	identityHandler := identity.NewHandler(svcs.Identity)
	authHandler := auth.NewHandler(svcs.Auth, d.Metrics, d.Logger)
	accountHandler := account.NewHandler(svcs.Accounts)
	transferHandler := transfer.NewHandler(svcs.Transfers, d.Metrics, d.Logger)

	sessionAuth := middleware.SessionAuth(svcs.Auth)
	RegisterAuthRoutes(api, authRoutes{
		auth:        authHandler,
		identity:    identityHandler,
		rateLimiter: middleware.LoginRateLimit(d.Cache, d.Cfg.LoginMaxPerMinute),
		sessionAuth: sessionAuth,
		metrics:     d.Metrics,
	})

	protected := api.Group("", sessionAuth)
	RegisterAccountRoutes(protected, accountHandler, d.Metrics)
	RegisterTransactionRoutes(protected, transferHandler, identityHandler,
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	return svcs, nil
}

func newServices(d Deps) *Services {
	var (
		ledgerBackend ledger.Ledger
		identityRepo  identity.Repository
		accountRepo   account.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB, d.Cfg.LockTimeout)
		identityRepo = identity.NewPostgresRepository(d.DB)
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory(d.Cfg.LockTimeout)
		identityRepo = identity.NewMemoryRepository()
		accountRepo = account.NewMemoryRepository()
	}

	identitySvc := identity.NewService(identityRepo)
	sessions := session.NewStore(d.Cfg.SessionTTL, d.Cfg.LockTimeout)
	tokens := auth.NewTokenManager(d.Cfg.JWTSecret, d.Cfg.JWTIssuer, d.Cfg.SessionTTL)
	notifier := notification.NewLoggerNotifier(d.Logger)

	return &Services{
		Identity:  identitySvc,
		Accounts:  account.NewService(accountRepo, ledgerBackend, identitySvc),
		Sessions:  sessions,
		Auth:      auth.NewService(identitySvc, sessions, tokens),
		Transfers: transfer.NewService(sessions, identitySvc, ledgerBackend, notifier),
		Ledger:    ledgerBackend,
	}
}

// countOnSuccess runs inc after h answered with a 2xx status.
func countOnSuccess(h fiber.Handler, inc func()) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h(c); err != nil {
			return err
		}
		if status := c.Response().StatusCode(); status >= 200 && status < 300 {
			inc()
		}
		return nil
	}
}
