package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/gatekeeper/internal/api/http"
	"github.com/spec-kit/gatekeeper/internal/api/http/handlers"
	"github.com/spec-kit/gatekeeper/internal/config"
	"github.com/spec-kit/gatekeeper/internal/events"
	"github.com/spec-kit/gatekeeper/internal/interaction"
	"github.com/spec-kit/gatekeeper/internal/observability"
	"github.com/spec-kit/gatekeeper/internal/persistence"
	"github.com/spec-kit/gatekeeper/internal/repository"
	"github.com/spec-kit/gatekeeper/internal/service"
	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport/discord"
	"github.com/spec-kit/gatekeeper/internal/worker"
)

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

	if cfg.Gateway.Token == "" {
		logger.Fatal("GATEWAY_BOT_TOKEN is required")
	}
	if cfg.Gateway.GuildID == "" {
		logger.Fatal("GATEWAY_GUILD_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	var docStore persistence.DocumentStore
	if strings.EqualFold(cfg.Settings.Backend, "redis") {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		docStore = persistence.NewRedisDocumentStore(redis, cfg.Settings.RedisKey)
	} else {
		docStore = persistence.NewFileStore(cfg.Settings.FilePath)
	}

	settingsStore, err := settings.NewStore(ctx, docStore, logger)
	if err != nil {
		logger.Fatal("failed to load settings", zap.Error(err))
	}

	gateway, err := discord.New(cfg.Gateway.Token, cfg.Gateway.GuildID, logger)
	if err != nil {
		logger.Fatal("failed to create gateway session", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	scheduler := service.NewScheduler()
	defer scheduler.Stop()

	verification := service.NewVerificationService(service.VerificationDependencies{
		Gateway:       gateway,
		Settings:      settingsStore,
		Dispatcher:    dispatcher,
		Scheduler:     scheduler,
		Metrics:       metrics,
		Logger:        logger,
		TeardownDelay: cfg.Verification.TeardownDelay(),
	})

	var archive repository.DecisionRepository
	if pg.PoolHandle() != nil {
		archive = repository.NewDecisionRepository(pg.PoolHandle())
	}
	decisionLog := service.NewDecisionLogService(dispatcher, gateway, settingsStore, archive, logger)
	worker.StartDecisionLogWorker(decisionLog)

	welcome := service.NewWelcomeService(gateway, settingsStore, logger)
	router := interaction.NewRouter(verification, welcome, settingsStore, logger)

	gateway.Bind(router, welcome)
	if err := gateway.Start(); err != nil {
		logger.Fatal("failed to connect gateway", zap.Error(err))
	}
	defer gateway.Close() //nolint:errcheck

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Status: handlers.NewStatusHandler(metrics, settingsStore),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
