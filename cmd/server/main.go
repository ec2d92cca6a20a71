package main

import (
	"context"
	"log"
	"time"

	"github.com/adelarp/PraxisBack/internal/app"
	"github.com/adelarp/PraxisBack/internal/config"
	"github.com/adelarp/PraxisBack/internal/database"
	"github.com/adelarp/PraxisBack/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger := app.NewLogger(cfg.AppEnv)
	defer func() {
		_ = zapLogger.Sync()
	}()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// 3. Setup Fiber
	fiberApp := fiber.New()

	// Middleware
	fiberApp.Use(cors.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(recover.New())

	// Routes
	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	renewalService := routes.RegisterRoutes(fiberApp, cfg, database.DB, zapLogger)

	// 4. Background renewal sweeper
	sweeper := app.NewSweeper(
		renewalService,
		zapLogger,
		time.Duration(cfg.RenewalSweepMinutes)*time.Minute,
	)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// 5. Start Server
	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
