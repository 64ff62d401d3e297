package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-sla/internal/api/http"
	"github.com/spec-kit/maintenance-sla/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-sla/internal/auth"
	"github.com/spec-kit/maintenance-sla/internal/config"
	"github.com/spec-kit/maintenance-sla/internal/events"
	"github.com/spec-kit/maintenance-sla/internal/notify"
	"github.com/spec-kit/maintenance-sla/internal/observability"
	"github.com/spec-kit/maintenance-sla/internal/persistence"
	"github.com/spec-kit/maintenance-sla/internal/repository"
	"github.com/spec-kit/maintenance-sla/internal/repository/memstore"
	"github.com/spec-kit/maintenance-sla/internal/service"
	"github.com/spec-kit/maintenance-sla/internal/sla"
	"github.com/spec-kit/maintenance-sla/internal/worker"
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

	policy, err := sla.LoadPolicyFile(cfg.SLA.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

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

	var (
		ticketRepo repository.TicketRepository
		eventRepo  repository.TicketEventRepository
		userRepo   repository.UserRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		eventRepo = repository.NewTicketEventRepository(pool)
		userRepo = repository.NewUserRepository(pool)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memstore.New()
		ticketRepo, eventRepo, userRepo = store.Tickets(), store.Events(), store.Users()
	}

	healthDeps := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if pg.PoolHandle() != nil {
		healthDeps["postgres"] = pg
	}

	var jobStore worker.JobStore = worker.NewMemoryJobStore(cfg.SLA.HistoryLimit)
	if cfg.SLA.JobStore == config.JobStoreRedis {
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis job store", zap.Error(err))
		}
		defer redis.Close()
		jobStore = worker.NewRedisJobStore(redis.Client, cfg.App.Name, cfg.SLA.HistoryTTL)
		healthDeps["redis"] = redis
	}

	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()
	dispatcher := events.NewInMemoryDispatcher(logger)

	transports := []notify.Transport{notify.NewLogTransport(logger)}
	email := notify.NewEmailTransport(notify.EmailConfig{
		Host:     cfg.Notification.SMTPHost,
		Port:     cfg.Notification.SMTPPort,
		Username: cfg.Notification.SMTPUser,
		Password: cfg.Notification.SMTPPassword,
		From:     cfg.Notification.EmailFrom,
	})
	if email.Enabled() {
		transports = append(transports, email)
	} else {
		logger.Warn("EMAIL_HOST not set; email notifications disabled")
	}
	webhook := notify.NewWebhookTransport(cfg.Notification.WebhookURL, cfg.Notification.SendTimeout)
	if webhook.Enabled() {
		transports = append(transports, webhook)
	} else {
		logger.Warn("NOTIFY_WEBHOOK_URL not set; chat notifications disabled")
	}

	renderer := notify.NewRenderer(cfg.Notification.FrontendURL, cfg.Notification.Location(), cfg.SLA.WarningWindow)
	notificationService := service.NewNotificationService(dispatcher, userRepo, renderer, transports, logger,
		service.NotificationOptions{SendTimeout: cfg.Notification.SendTimeout, Clock: clk, Metrics: metrics})
	notificationService.RegisterHandlers()

	monitor := sla.NewMonitor(
		sla.NewScanner(ticketRepo),
		sla.NewApplier(ticketRepo, eventRepo, logger),
		dispatcher,
		sla.MonitorOptions{
			Window:        cfg.SLA.WarningWindow,
			NotifyTimeout: cfg.SLA.NotifyTimeout,
			BatchSize:     cfg.SLA.BatchSize,
			Clock:         clk,
			Logger:        logger,
			Metrics:       metrics,
		},
	)
	scheduler := worker.NewScheduler(monitor, jobStore, clk, worker.SchedulerConfig{
		Interval:   cfg.SLA.ScanInterval,
		Timeout:    cfg.SLA.CycleTimeout,
		Workers:    cfg.SLA.Workers,
		QueueSize:  cfg.SLA.QueueSize,
		RunOnStart: cfg.SLA.RunOnStart,
	}, logger, metrics)

	authService := service.NewAuthService(cfg.Auth, userRepo, logger)
	if _, err := authService.EnsureAdmin(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		EventRepo:  eventRepo,
		Policy:     policy,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	slaService := service.NewSLAService(scheduler, ticketRepo, clk, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		SLAMonitor:     handlers.NewSLAMonitorHandler(slaService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- scheduler.Run(ctx)
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	if err := <-schedulerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sla scheduler stopped with error", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
