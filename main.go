package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/cache"
	"github.com/MitchCasey/ReviewPing/internal/pkg/database"
	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
	"github.com/MitchCasey/ReviewPing/internal/pkg/googleauth"
	"github.com/MitchCasey/ReviewPing/internal/pkg/refresher"
	"github.com/MitchCasey/ReviewPing/internal/pkg/router"
	"github.com/MitchCasey/ReviewPing/internal/pkg/xero"
)

func main() {
	app := NewApplication()

	manager := refresher.GetManager(
		repository.GetGlobalRepositories(),
		xero.NewClientFromEnv(),
		googleauth.NewRefresherFromEnv(),
	)
	manager.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		manager.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "ReviewPing",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
