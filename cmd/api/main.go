package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/push-hr/helpdesk/internal/api/http"
	"github.com/push-hr/helpdesk/internal/api/http/handlers"
	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/blob"
	"github.com/push-hr/helpdesk/internal/config"
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/observability"
	"github.com/push-hr/helpdesk/internal/persistence"
	"github.com/push-hr/helpdesk/internal/relay"
	"github.com/push-hr/helpdesk/internal/repository"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/internal/session"
	"github.com/push-hr/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
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

	var bus feed.Bus
	if redis.Client != nil {
		bus = feed.NewRedisBus(redis.Client, logger)
	} else {
		bus = feed.NewMemoryBus()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	faqRepo := repository.NewFAQRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		TicketRepo:       ticketRepo,
		ProfileRepo:      profileRepo,
		CategoryRepo:     categoryRepo,
		FAQRepo:          faqRepo,
		NotificationRepo: notificationRepo,
		Bus:              bus,
		Logger:           logger,
	})

	sessionManager := session.NewManager(bus, directoryService, logger)
	sessionRegistry := session.NewRegistry(sessionManager)
	defer sessionRegistry.CloseAll()

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Bus:         bus,
		Dispatcher:  dispatcher,
		Sessions:    sessionManager,
		Logger:      logger,
	})

	threadService := service.NewThreadService(service.ThreadDependencies{
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		HistoryRepo:    historyRepo,
		Blobs:          blob.NewHTTPStore(cfg.Blob),
		Bus:            bus,
		Dispatcher:     dispatcher,
		Sessions:       sessionManager,
		Logger:         logger,
	})

	notificationService := service.NewNotificationService(notificationRepo, bus, logger)

	fanoutService := service.NewFanoutService(service.FanoutDependencies{
		NotificationRepo: notificationRepo,
		ProfileRepo:      profileRepo,
		Bus:              bus,
		Transport:        buildRelayChain(cfg.Relay, logger),
		Metrics:          metrics,
		BaseURL:          cfg.Relay.BaseURL,
		Logger:           logger,
	})
	worker.StartNotificationWorker(fanoutService, dispatcher)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(tokenManager, directoryService, sessionRegistry)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(lifecycleService, threadService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reference:      handlers.NewReferenceHandler(directoryService),
		Profiles:       handlers.NewProfilesHandler(directoryService),
		Stream:         handlers.NewStreamHandler(bus, logger),
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

// buildRelayChain assembles the delivery chain: Teams webhook first, direct
// bearer call as fallback, Telegram when configured.
func buildRelayChain(cfg config.RelayConfig, logger *zap.Logger) relay.Transport {
	var transports []relay.Transport
	if cfg.WebhookURL != "" {
		transports = append(transports, relay.NewWebhookTransport(cfg.WebhookURL))
	}
	if cfg.FallbackURL != "" {
		transports = append(transports, relay.NewDirectTransport(cfg.FallbackURL, cfg.FallbackToken))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := relay.NewTelegramTransport(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("telegram transport unavailable", zap.Error(err))
		} else {
			transports = append(transports, tg)
		}
	}
	if len(transports) == 0 {
		logger.Warn("no relay transports configured; external notifications disabled")
		return nil
	}
	return relay.NewChain(transports...)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
