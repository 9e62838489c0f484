package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tradiehq/TradieHQ/app/controllers"
	"github.com/tradiehq/TradieHQ/app/repository"
	"github.com/tradiehq/TradieHQ/internal/pkg/cache"
	"github.com/tradiehq/TradieHQ/internal/pkg/crmsync"
	"github.com/tradiehq/TradieHQ/internal/pkg/database"
	"github.com/tradiehq/TradieHQ/internal/pkg/env"
	"github.com/tradiehq/TradieHQ/internal/pkg/escrow"
	"github.com/tradiehq/TradieHQ/internal/pkg/payments"
	"github.com/tradiehq/TradieHQ/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Start the background CRM sync loop
	syncManager := crmsync.GetManager()
	syncManager.Start()

	// Stop the sync loop cleanly on shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		syncManager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Wire repositories and controllers
	repository.InitializeFactory(database.GetDB())
	controllers.InitializePaymentController(
		escrow.NewServiceFromDB(database.GetDB(), payments.NewClientFromEnv()),
	)
	syncQueue := crmsync.NewRepository(database.GetDB())
	controllers.InitializeAdminHubspotController(syncQueue)
	controllers.InitializeCRMQueue(syncQueue)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "TradieHQ",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
