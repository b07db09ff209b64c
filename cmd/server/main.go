package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/database"
	"github.com/mediscanhq/mediscan-backend/internal/detection"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/handlers"
	"github.com/mediscanhq/mediscan-backend/internal/logging"
	"github.com/mediscanhq/mediscan-backend/internal/middleware"
	"github.com/mediscanhq/mediscan-backend/internal/portal"
	"github.com/mediscanhq/mediscan-backend/internal/routes"
	"github.com/mediscanhq/mediscan-backend/internal/services"
	"github.com/mediscanhq/mediscan-backend/internal/session"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD is required")
		os.Exit(1)
	}

	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	detectionSvc := detection.NewService(database.DB, cfg)
	portalSvc := portal.NewService(database.DB)

	var featureModels []interface{}
	featureModels = append(featureModels, detectionSvc.Models()...)
	featureModels = append(featureModels, portalSvc.Models()...)
	if err := database.MigrateModels(featureModels); err != nil {
		slog.Error("feature migration failed", "error", err)
		os.Exit(1)
	}

	// Route ERROR+ logs to the system_logs table on top of stdout.
	pgLogHandler := logging.NewPGHandler(database.DB)
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))

	done := make(chan struct{})
	logging.StartCleanup(database.DB, done)
	detectionSvc.StartJanitor(done)

	// Session slots live in Redis when available, falling back to process
	// memory for local development.
	var slotStore session.Store
	if client := config.NewRedisClient(cfg); client != nil {
		slotStore = session.NewRedisStore(client, 0)
		slog.Info("session slots backed by redis", "addr", cfg.RedisAddr)
	} else {
		slotStore = session.NewMemoryStore()
		slog.Warn("redis unavailable, session slots are in-memory only")
	}

	if cfg.SeedDemo {
		if err := portal.SeedDemo(database.DB); err != nil {
			slog.Error("demo seed failed", "error", err)
			os.Exit(1)
		}
	}

	settingsHandler := handlers.NewSettingsHandler(database.DB)
	if err := settingsHandler.SeedDefaults(); err != nil {
		slog.Error("settings seed failed", "error", err)
		os.Exit(1)
	}

	sentryEnabled := false
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			sentryEnabled = true
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "mediscan-backend",
		BodyLimit:    int(cfg.MaxImageBytes) + 1024*1024,
		ErrorHandler: errorHandler,
	})

	if sentryEnabled {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	}
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: `{"time":"${time}","request_id":"${locals:requestid}","status":${status},"latency":"${latency}","method":"${method}","path":"${path}"}` + "\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	authSvc := services.NewAuthService(database.DB, cfg, slotStore)
	routes.Setup(app, database.DB, cfg, authSvc, detectionSvc)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server started", "port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	close(done)
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	pgLogHandler.Stop()
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		msg = fiberErr.Message
	}
	if code >= 500 {
		slog.Error("unhandled request error", "error", err, "path", c.Path())
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
