package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pos/internal/app"
	"pos/internal/config"
	stripegw "pos/internal/gateway/stripe"
	"pos/internal/handler"
	"pos/internal/kafka"
	"pos/internal/middleware"
	"pos/internal/service"
	"pos/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set, gateway calls will fail")
	}
	if cfg.Stripe.ReaderID == "" {
		logger.Warn("READER_ID is not set, reader operations are disabled")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET is not set, all webhooks will be rejected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the clients below are instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Error("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("idempotency cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher *kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close notification publisher", zap.Error(err))
			}
		}()
		logger.Info("notification relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	tasks := service.NewBackgroundRunner(cfg.Payment.ContactTimeout, logger)

	server, err := wireServer(cfg, logger, nrApp, redisClient, publisher, tasks)
	if err != nil {
		logger.Fatal("failed to wire server", zap.Error(err))
	}

	go func() {
		logger.Info("POS server running",
			zap.String("port", cfg.Server.Port),
			zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background tasks still running at shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	logger *zap.Logger,
	nrApp *newrelic.Application,
	redisClient *redis.Client,
	publisher *kafka.Publisher,
	tasks *service.BackgroundRunner,
) (*http.Server, error) {
	// Payment gateway.
	gw := stripegw.New(stripegw.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		APIURL:        cfg.Stripe.APIURL,
	}, app.NewHTTPClient(cfg.Stripe.Timeout, nrApp), logger)

	// Services.
	poller := service.NewPoller(gw, service.PollerConfig{
		Interval:       cfg.Poller.Interval,
		MaxWait:        cfg.Poller.MaxWait,
		MaxAttempts:    cfg.Poller.MaxAttempts,
		MaxQueryErrors: cfg.Poller.MaxQueryErrors,
	}, logger)
	paymentService := service.NewPaymentService(gw, poller, tasks, service.PaymentConfig{
		ReaderID:               cfg.Stripe.ReaderID,
		DefaultCurrency:        cfg.Payment.DefaultCurrency,
		Description:            cfg.Payment.Description,
		CollectCustomerContact: cfg.Payment.CollectCustomerContact,
		ReaderReleaseTimeout:   cfg.Payment.ReaderReleaseTimeout,
	}, logger)

	var notificationPublisher service.Publisher
	if publisher != nil {
		notificationPublisher = publisher
	}
	notificationService := service.NewNotificationService(notificationPublisher, logger)
	webhookService := service.NewWebhookService(gw, notificationService, logger)

	// Handlers.
	pageHandler, err := handler.NewPageHandler(web.Pages)
	if err != nil {
		return nil, err
	}

	deps := app.RouterDeps{
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		WebhookHandler: handler.NewWebhookHandler(webhookService),
		PageHandler:    pageHandler,
		NewRelicApp:    nrApp,
		Logger:         logger,
	}
	if redisClient != nil {
		deps.IdempotencyStore = middleware.NewRedisResponseStore(redisClient)
	}

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
