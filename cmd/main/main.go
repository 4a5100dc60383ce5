package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/cache"
	"gitlab.com/timkado/api/lead-outreach-service/internal/config"
	"gitlab.com/timkado/api/lead-outreach-service/internal/healthcheck"
	"gitlab.com/timkado/api/lead-outreach-service/internal/httpapi"
	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/geocoding"
	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/openai"
	"gitlab.com/timkado/api/lead-outreach-service/internal/jetstream"
	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/storage"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
	"gitlab.com/timkado/api/lead-outreach-service/internal/webhook"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Lead Outreach Service",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.String("webhook_verification", cfg.Webhook.Verification),
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout+30*time.Second)
	defer startCancel()

	// Initialize repositories
	postgresRepo, err := storage.NewPostgresRepo(startCtx, cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate, cfg.Database.ConnectTimeout)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Activity publishing is optional; without NATS events are dropped.
	var (
		jsClient  *jetstream.Client
		publisher jetstream.ActivityPublisher = jetstream.NoopPublisher{}
	)
	if cfg.NATS.URL != "" {
		jsClient, err = jetstream.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		streamCfg := jetstream.ActivityStreamConfig(cfg.NATS.Stream, cfg.NATS.SubjectPrefix, cfg.NATS.MaxAgeDays)
		if err := jsClient.SetupStream(startCtx, streamCfg); err != nil {
			logger.Log.Fatal("Failed to set up activity stream", zap.Error(err))
		}
		publisher = jetstream.NewLeadActivityPublisher(jsClient, cfg.NATS.SubjectPrefix)
	} else {
		logger.Log.Info("NATS URL not set, lead activity events are disabled")
	}

	var mailer mailgun.Mailer
	if cfg.MailgunConfigured() {
		mailer = mailgun.NewClient(cfg.Mailgun.APIKey, cfg.Mailgun.Domain)
	} else {
		logger.Log.Warn("Mailgun credentials not set, outbound email is logged instead of sent")
		mailer = mailgun.NewLoggingMailer(cfg.Mailgun.Domain)
	}

	verifier, err := webhook.NewVerifier(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize webhook verifier", zap.Error(err))
	}

	var (
		redisClient *redis.Client
		geocoder    geocoding.Geocoder = geocoding.NewClient(cfg.Geocoding.BaseURL, cfg.Geocoding.APIKey, cfg.Geocoding.Timeout)
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(startCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		geocoder = cache.NewGeocodeCache(redisClient, geocoder, cfg.Redis.TTL)
		logger.Log.Info("Geocode cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}
	polisher := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)

	// Services
	leadService := usecase.NewLeadService(postgresRepo, mailer, publisher)
	accountService := usecase.NewAccountService(postgresRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mapService, err := usecase.NewMapService(cfg.WorkerPools.Geocode, postgresRepo, geocoder, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize geocode worker pool", zap.Error(err))
	}

	var metricsHandler http.Handler
	if metricsEnabled {
		metricsHandler = promhttp.Handler()
	} else {
		logger.Log.Info("Metrics endpoint disabled", zap.String("environment", cfg.Environment))
	}

	server := httpapi.NewServer(logger.Log,
		httpapi.Options{
			Port:        cfg.Server.Port,
			JWTSecret:   cfg.Auth.JWTSecret,
			Development: cfg.IsDevelopment(),
		},
		healthcheck.NewHandler(postgresRepo, metricsHandler, version, logger.Log),
		httpapi.NewAuthHandler(accountService),
		httpapi.NewContactsHandler(leadService, mapService, httpapi.PagingOptions{
			DefaultLimit: cfg.Query.DefaultLimit,
			MapLimit:     cfg.Query.MapLimit,
			MaxLimit:     cfg.Query.MaxLimit,
		}),
		httpapi.NewEmailHandler(leadService, polisher),
		httpapi.NewWebhookHandler(leadService, verifier),
		httpapi.NewGeocodeHandler(geocoder),
	)
	server.Start()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	// The HTTP server drains first so no request sees a closed dependency.
	start := time.Now()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
	} else {
		logger.Log.Info("[shutdown] HTTP server stopped", zap.Duration("duration", time.Since(start)))
	}

	var wg sync.WaitGroup
	stop := func(name string, fn func()) {
		wg.Add(1)
		utils.SafeGo(func() {
			defer wg.Done()
			logger.Log.Info("[shutdown] Stopping " + name)
			start := time.Now()
			fn()
			logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
		}, func(r interface{}, stack []byte) {
			logger.Log.Error("[shutdown] Panic while stopping "+name,
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
		})
	}

	stop("geocode worker pool", mapService.Stop)
	stop("PostgreSQL connection", func() {
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		}
	})
	if jsClient != nil {
		stop("JetStream connection", jsClient.Close)
	}
	if redisClient != nil {
		stop("Redis connection", func() {
			if err := redisClient.Close(); err != nil {
				logger.Log.Error("[shutdown] Failed to close Redis connection", zap.Error(err))
			}
		})
	}

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Lead Outreach Service shutdown complete")
}
