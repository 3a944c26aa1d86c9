package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/karabomaleka/tshwanebus/internal/adapters/gateway"
	"github.com/karabomaleka/tshwanebus/internal/adapters/http"
	natsadapter "github.com/karabomaleka/tshwanebus/internal/adapters/nats"
	"github.com/karabomaleka/tshwanebus/internal/adapters/postgres"
	"github.com/karabomaleka/tshwanebus/internal/adapters/valkey"
	"github.com/karabomaleka/tshwanebus/internal/core/ports"
	"github.com/karabomaleka/tshwanebus/internal/core/usecases"
	"github.com/karabomaleka/tshwanebus/internal/pkg/config"
	"github.com/karabomaleka/tshwanebus/internal/pkg/logging"
	"github.com/karabomaleka/tshwanebus/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tshwanebus-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup("tshwanebus-api", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	routeRepo := postgres.NewRouteRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	walletRepo := postgres.NewWalletRepo(db)
	ticketRepo := postgres.NewTicketRepo(db)
	uow := postgres.NewPaymentUOW(db)
	authRepo := postgres.NewAuthRepo(db)

	// Use cases
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	routeSvc := usecases.NewRouteService(routeRepo, cacheSvc)
	plannerSvc := usecases.NewPlannerService(routeRepo, cacheSvc)
	scheduleSvc := usecases.NewScheduleService(scheduleRepo, routeRepo)
	paymentSvc := usecases.NewPaymentService(routeRepo, walletRepo, ticketRepo, uow, gateway.NewSimulated(), publisher)

	deps := &http.Dependencies{
		Routes:    routeSvc,
		Planner:   plannerSvc,
		Schedules: scheduleSvc,
		Payments:  paymentSvc,
		Auth:      authRepo,
		Publisher: publisher,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
		Debug:     cfg.Debug,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TshwaneBus API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.tshwanebus.co.za",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
