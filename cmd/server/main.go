package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/database"
	"github.com/localnerve/healthsync/internal/handlers"
	"github.com/localnerve/healthsync/internal/services"
	"golang.org/x/sync/errgroup"

	_ "github.com/localnerve/healthsync/docs/api" // Swagger docs
)

// @title HealthSync API
// @version 1.0.0
// @description Health device sync and wellness scoring service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/healthsync
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	engine, err := services.NewEngine(db, cfg,
		services.WithProvider(services.NewFitClient(cfg.ProviderBaseURL, cfg.ProviderTimeout)))
	if err != nil {
		log.Fatalf("Failed to create sync engine: %v", err)
	}
	defer engine.Close()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		AppName:      "healthsync",
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("healthsync")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", handlers.ServiceHealth(cfg, db))

	// API routes under /api
	handlers.Routes(app.Group("/api"), engine)

	// 404 handler
	app.Use(handlers.NotFound)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := engine.ResumeAutoSync(ctx); err != nil {
		log.Printf("Failed to resume auto-sync: %v", err)
	} else if n > 0 {
		log.Printf("Resumed auto-sync for %d devices", n)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start server
	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Gracefully shutting down...")
		engine.Close()
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
