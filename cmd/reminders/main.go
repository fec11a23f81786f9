package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/persistence"
	"github.com/saos/service-desk/internal/refcode"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
	"github.com/saos/service-desk/internal/worker"
)

func main() {
	limit := flag.Int("limit", 500, "maximum number of requests reminded in one run")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	os.Exit(run(*limit, *timeout))
}

// run returns the process exit code: 1 when the sweep could not run, 2 when
// some reminders were not delivered.
func run(limit int, timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return 1
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)

	settings, err := repository.NewSettingsRepository(pool).Load(ctx, config.SettingKeys)
	if err != nil {
		logger.Warn("failed to load persisted settings; using environment only", zap.Error(err))
	}
	loc := cfg.App.Location()

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		RequestRepo: requestRepo,
		HistoryRepo: repository.NewHistoryRepository(pool),
		CatalogRepo: repository.NewCatalogRepository(pool),
		UserRepo:    repository.NewUserRepository(pool),
		TxManager:   repository.NewTxManager(pool),
		Sequencer:   refcode.NewCountSequencer(requestRepo),
		Config:      cfg.Lifecycle,
		Location:    loc,
		Logger:      logger,
	})
	notifications := service.NewNotificationService(service.NotificationDependencies{
		RequestRepo:  requestRepo,
		TemplateRepo: templateRepo,
		Mailer:       mailer.NewDispatcher(mailer.NewSMTPSender(cfg.Mail.Overlay(settings)), logger),
		Metrics:      observability.NewMetrics(),
		Links:        cfg.Links.Overlay(settings),
		Location:     loc,
		Logger:       logger,
	})

	result, err := worker.NewDeadlineReminder(lifecycle, notifications, logger, limit).Run(ctx)
	if err != nil {
		logger.Error("deadline reminder sweep aborted", zap.Error(err))
		return 1
	}
	if result.Failed > 0 {
		return 2
	}
	return 0
}
