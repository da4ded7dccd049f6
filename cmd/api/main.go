package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picksearch-partner-api/config"
	httpHandler "picksearch-partner-api/internal/adapter/http/handler"
	pgStorage "picksearch-partner-api/internal/adapter/storage/postgres"
	redisStorage "picksearch-partner-api/internal/adapter/storage/redis"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/metrics"
	"picksearch-partner-api/internal/service"
	"picksearch-partner-api/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Picksearch partner API")

	metrics.RegisterDefault()

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := pgStorage.Migrate(ctx, pool, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories and stores
	partnerRepo := pgStorage.NewPartnerRepo(pool)
	surveyRepo := pgStorage.NewSurveyRepo(pool)
	deliveryRepo := pgStorage.NewDeliveryRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	sequenceStore := redisStorage.NewSequenceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Webhook dispatch
	webhookLog := logger.Component(log, "webhook")
	deliveryClient := service.NewHTTPDeliveryClient(service.NewWebhookHTTPClient(), cfg.Webhook.Timeout, cfg.Webhook.UserAgent, webhookLog)
	webhookSvc := service.NewWebhookService(
		service.NewPayloadBuilder(time.Now),
		service.NewHMACSignatureService(),
		deliveryClient,
		deliveryRepo,
		sequenceStore,
		service.WebhookOptions{
			Workers:               cfg.Webhook.Workers,
			QueueSize:             cfg.Webhook.QueueSize,
			MaxInFlightPerPartner: cfg.Webhook.MaxInFlightPerPartner,
			RequireSecret:         cfg.Webhook.RequireSecret,
			RetryIntervals:        cfg.Webhook.RetryIntervals,
			PendingLease:          cfg.Webhook.RetryLease,
			PartnerBusyDelay:      cfg.Webhook.PartnerBusyDelay,
		},
		webhookLog,
	)

	// Business services
	partnerSvc := service.NewPartnerService(partnerRepo, encSvc, webhookSvc, cfg.Webhook.RequireSecret)
	surveySvc := service.NewSurveyService(surveyRepo, partnerSvc, webhookSvc, log)
	deliverySvc := service.NewDeliveryAdminService(deliveryRepo)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	scheduler := service.NewRetryScheduler(deliveryRepo, partnerSvc, webhookSvc, service.RetrySchedulerOptions{
		PollInterval: cfg.Webhook.RetryPollInterval,
		BatchSize:    cfg.Webhook.RetryBatchSize,
		Lease:        cfg.Webhook.RetryLease,
	}, logger.Component(log, "retry"))

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		scheduler.Start(schedCtx)
	}()

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PartnerSvc:  partnerSvc,
		SurveySvc:   surveySvc,
		DeliverySvc: deliverySvc,
		RateLimiter: rateLimitStore,
		AuditSvc:    auditSvc,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		},
		Logger: logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop claiming retries, then let in-flight deliveries finish.
	stopScheduler()
	<-schedDone
	webhookSvc.Close()

	log.Info().Msg("Server exited")
}
