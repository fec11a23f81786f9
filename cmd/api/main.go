package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/saos/service-desk/internal/api/http"
	"github.com/saos/service-desk/internal/api/http/handlers"
	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/persistence"
	"github.com/saos/service-desk/internal/refcode"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
	"github.com/saos/service-desk/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	txManager := repository.NewTxManager(pool)

	settings, err := repository.NewSettingsRepository(pool).Load(ctx, config.SettingKeys)
	if err != nil {
		logger.Warn("failed to load persisted settings; using environment only", zap.Error(err))
	}
	mailCfg := cfg.Mail.Overlay(settings)
	linksCfg := cfg.Links.Overlay(settings)
	loc := cfg.App.Location()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	mail := mailer.NewDispatcher(mailer.NewSMTPSender(mailCfg), logger)

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		RequestRepo: requestRepo,
		HistoryRepo: historyRepo,
		CatalogRepo: catalogRepo,
		UserRepo:    userRepo,
		TxManager:   txManager,
		Sequencer:   refcode.New(redis.SequenceClient(), requestRepo, logger),
		Dispatcher:  dispatcher,
		Config:      cfg.Lifecycle,
		Location:    loc,
		Logger:      logger,
	})
	var transitions service.StatusTransitioner = lifecycle
	if cfg.Lifecycle.EnforceTransitions {
		transitions = service.NewTransitionGuard(lifecycle, requestRepo, nil)
	}

	notifications := service.NewNotificationService(service.NotificationDependencies{
		RequestRepo:  requestRepo,
		TemplateRepo: templateRepo,
		Mailer:       mail,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Links:        linksCfg,
		Location:     loc,
		Logger:       logger,
	})
	worker.StartNotificationWorker(dispatcher, notifications, metrics, logger)

	templates := service.NewTemplateService(service.TemplateDependencies{
		TemplateRepo: templateRepo,
		Mailer:       mail,
		Logger:       logger,
	})
	comments := service.NewCommentService(service.CommentDependencies{
		RequestRepo: requestRepo,
		CommentRepo: commentRepo,
		HistoryRepo: historyRepo,
		TxManager:   txManager,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	dashboard := service.NewDashboardService(service.DashboardDependencies{
		DashboardRepo: dashboardRepo,
		Config:        cfg.Lifecycle,
	})
	users := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		Welcome:    notifications,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	reports := service.NewReportService(service.ReportDependencies{
		Requests: lifecycle,
		Location: loc,
		Logger:   logger,
	})
	catalog := service.NewCatalogService(catalogRepo)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	requestsHandler := handlers.NewRequestsHandler(handlers.RequestsHandlerDeps{
		Lifecycle:     lifecycle,
		Transitions:   transitions,
		Comments:      comments,
		Notifications: notifications,
		Reports:       reports,
		Location:      loc,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       requestsHandler,
		Templates:      handlers.NewTemplatesHandler(templates),
		Users:          handlers.NewUsersHandler(users),
		Dashboard:      handlers.NewDashboardHandler(dashboard, lifecycle, metrics, loc),
		Catalog:        handlers.NewCatalogHandler(catalog),
		AuthMiddleware: authMiddleware,
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
