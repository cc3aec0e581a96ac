package routes

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pinwallet/pinwallet/internal/account"
	"github.com/pinwallet/pinwallet/internal/config"
	"github.com/pinwallet/pinwallet/internal/identity"
	"github.com/pinwallet/pinwallet/internal/metrics"
	"github.com/pinwallet/pinwallet/internal/middleware"
	"github.com/pinwallet/pinwallet/internal/notification"
	"github.com/pinwallet/pinwallet/internal/validate"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Verifier identity.Verifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Verifier == nil {
		return errors.New("identity verifier is required")
	}
	repo, err := accountRepository(d)
	if err != nil {
		return err
	}
	validator, err := validate.New()
	if err != nil {
		return fmt.Errorf("build request validator: %w", err)
	}

	// Middlewares
	metrics.Register()
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(cors.Config{AllowOrigins: d.Cfg.CORSAllowOrigins}))
	app.Use(middleware.Metrics())

	// Health and metrics
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	hasher := account.NewBcryptHasher(d.Cfg.PinHashCost)
	accountSvc := account.NewService(repo, hasher, notifier, d.Logger)
	accountHandler := account.NewHandler(accountSvc, validator, d.Cfg.StoreTimeout)

	// Protected routes
	api := app.Group(d.Cfg.APIPrefix, middleware.Bearer(d.Verifier))
	var idempotent, pinLimiter fiber.Handler
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
		if d.Cfg.PinVerifyPerMin > 0 {
			pinLimiter = middleware.PinAttemptLimit(d.Cache, d.Cfg.PinVerifyPerMin)
		}
	}
	RegisterAccountRoutes(api, accountHandler, idempotent, pinLimiter)

	return nil
}

func accountRepository(d Deps) (account.Repository, error) {
	switch d.Cfg.StoreBackend {
	case config.StorePostgres:
		if d.DB == nil {
			return nil, errors.New("database is required for STORE_BACKEND=postgres")
		}
		return account.NewPostgresRepository(d.DB), nil
	case config.StoreRedis:
		if d.Cache == nil {
			return nil, errors.New("redis is required for STORE_BACKEND=redis")
		}
		return account.NewRedisRepository(d.Cache), nil
	case config.StoreMemory, "":
		if !d.Cfg.IsDev() {
			return nil, fmt.Errorf("in-memory store is not allowed when APP_ENV=%s", d.Cfg.AppEnv)
		}
		return account.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", d.Cfg.StoreBackend)
	}
}
