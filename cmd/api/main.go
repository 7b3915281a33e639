package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/personahub/chat-backend/internal/api/http"
	"github.com/personahub/chat-backend/internal/api/http/handlers"
	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/clock"
	"github.com/personahub/chat-backend/internal/config"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/observability"
	"github.com/personahub/chat-backend/internal/persistence"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/repository/memory"
	"github.com/personahub/chat-backend/internal/service"
	"github.com/personahub/chat-backend/internal/worker"
)

const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	objects, err := persistence.NewObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	}

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
	} else {
		logger.Warn("running on the in-memory store; data is lost on restart")
		store = memory.New()
	}

	clk := clock.System()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	bus := events.NewInMemoryDispatcher()
	var publisher service.Publisher
	if redis != nil {
		publisher = redis.Client
	}
	worker.StartNotificationWorker(bus, publisher, cfg.Redis, logger)

	deps := service.Dependencies{
		Store:     store,
		Clock:     clk,
		Events:    bus,
		Passwords: auth.BcryptHasher{Cost: cfg.Auth.BcryptCost},
		Tokens:    tokens,
		Logger:    logger,
	}
	if objects != nil {
		deps.Files = objects
	}

	reg := dispatch.NewRegistry(dispatch.WithObserver(observability.NewDispatchObserver(metrics, logger)))
	service.Register(reg, deps)
	dispatcher, err := reg.Build()
	if err != nil {
		logger.Fatal("invalid handler registration", zap.Error(err))
	}
	logger.Info("dispatcher ready", zap.Int("requests", len(dispatcher.Names())))

	limiter := httptransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)

	sweeper := worker.NewSuspensionSweeper(store, clk, logger)
	scheduler, err := worker.StartSuspensionSweep(cfg.Workers.SuspensionSweepCron, sweeper, logger)
	if err != nil {
		logger.Fatal("failed to schedule suspension sweep", zap.Error(err))
	}
	if _, err := scheduler.AddFunc("@every 5m", func() {
		if n := limiter.Prune(limiterIdle); n > 0 {
			logger.Debug("pruned idle rate limiters", zap.Int("count", n))
		}
	}); err != nil {
		logger.Fatal("failed to schedule limiter prune", zap.Error(err))
	}

	logger.Info("starting http server", zap.String("addr", cfg.App.Addr()))
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		checks["postgres"] = pg
	}
	if redis != nil {
		checks["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Users:          handlers.NewUsersHandler(dispatcher),
		Tickets:        handlers.NewTicketsHandler(dispatcher),
		Personas:       handlers.NewPersonasHandler(dispatcher),
		Reports:        handlers.NewReportsHandler(dispatcher),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repos().Users, clk, logger),
		RateLimiter:    limiter,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	<-scheduler.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
