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

	httptransport "github.com/spec-kit/isp-support/internal/api/http"
	"github.com/spec-kit/isp-support/internal/api/http/handlers"
	"github.com/spec-kit/isp-support/internal/auth"
	"github.com/spec-kit/isp-support/internal/cache"
	"github.com/spec-kit/isp-support/internal/config"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/observability"
	"github.com/spec-kit/isp-support/internal/persistence"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/service"
	"github.com/spec-kit/isp-support/internal/sla"
	"github.com/spec-kit/isp-support/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if !pg.Configured() {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store cache.Store = cache.NewRedisStore(redis.Client)
	if err != nil {
		logger.Warn("caching in process memory")
		store = cache.NewMemoryStore(time.Now)
	}

	metrics := observability.NewMetrics()
	location := cfg.App.Location()
	evaluator := sla.NewEvaluator(nil)
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	repos := repository.New(pool)
	txRunner := repository.NewTxRunner(pool)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   repos.Users,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.Users,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Repos:      repos,
		Tx:         txRunner,
		Dispatcher: dispatcher,
		Evaluator:  evaluator,
		Metrics:    metrics,
		Logger:     logger,
		Location:   location,
	})
	customerService := service.NewCustomerService(service.CustomerDependencies{
		Repos:      repos,
		Tx:         txRunner,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	installationService := service.NewInstallationService(service.InstallationDependencies{
		Repos:   repos,
		Tx:      txRunner,
		Metrics: metrics,
		Logger:  logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Repos:     repos,
		Evaluator: evaluator,
		Cache:     cache.NewDashboard(store, cfg.Cache.DashboardTTL(), logger),
		Logger:    logger,
		Location:  location,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, dashboardService)

	if cfg.Auth.BootstrapAdmin() {
		if _, err := userService.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to ensure bootstrap admin", zap.Error(err))
		}
	}

	monitor := worker.NewSLAMonitor(worker.SLAMonitorDependencies{
		Tickets:    repos.Tickets,
		Evaluator:  evaluator,
		Ledger:     cache.NewBreachLedger(store),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if cfg.Scheduler.Enabled {
		if err := monitor.Start(cfg.Scheduler.SLASweepSpec); err != nil {
			logger.Fatal("failed to start sla monitor", zap.Error(err))
		}
		defer monitor.Stop()
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Customers:      handlers.NewCustomersHandler(customerService, location),
		Installations:  handlers.NewInstallationsHandler(installationService, location),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
		Registry:       metrics.Registry(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

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
