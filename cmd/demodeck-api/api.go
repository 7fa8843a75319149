// Package main provides the demodeck API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/dukex/demodeck/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	ctx     context.Context
	logger  *slog.Logger
	runtime *cmd.Runtime
}

// NewAPI binds the server to ctx; executions started over HTTP are cancelled with it.
func NewAPI(ctx context.Context, logger *slog.Logger, runtime *cmd.Runtime) *API {
	return &API{
		ctx:     ctx,
		logger:  logger,
		runtime: runtime,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.ctx,
		a.runtime.Demos,
		a.runtime.Store,
		a.runtime.Orchestrator,
		a.runtime.Sync,
		a.runtime.Config,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("demodeck API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is done, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Starting API server", "port", port)

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
