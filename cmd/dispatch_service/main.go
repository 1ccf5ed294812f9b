package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/aradsms/golang_services/internal/core_domain"
	httpadapter "github.com/aradsms/golang_services/internal/dispatch_service/adapters/http"
	"github.com/aradsms/golang_services/internal/dispatch_service/app"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/provider"
	"github.com/aradsms/golang_services/internal/dispatch_service/repository/postgres"
	"github.com/aradsms/golang_services/internal/dispatch_service/repository/rediscache"
	"github.com/aradsms/golang_services/internal/dispatch_service/template"
	"github.com/aradsms/golang_services/internal/platform/cache"
	"github.com/aradsms/golang_services/internal/platform/config"
	"github.com/aradsms/golang_services/internal/platform/database"
	"github.com/aradsms/golang_services/internal/platform/logger"
	"github.com/aradsms/golang_services/internal/platform/messagebroker"
)

const (
	serviceName     = "dispatch_service"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".", "config.defaults")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel).With("service", serviceName)
	log.Info("Starting service...")

	retentionOverrides, err := cfg.ContentRetentionOverrides()
	if err != nil {
		return err
	}

	mainCtx, mainCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer mainCancel()

	startCtx, startCancel := context.WithTimeout(mainCtx, startupTimeout)
	defer startCancel()

	dbPool, err := database.NewDBPool(startCtx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, log)
	if err != nil {
		return err
	}
	defer natsClient.Close()
	log.Info("NATS connection initialized")

	checks := map[string]httpadapter.Pinger{
		"postgres": dbPool,
		"nats": httpadapter.PingFunc(func(context.Context) error {
			if !natsClient.Conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}),
	}

	var integrationRepo domain.IntegrationRepository = postgres.NewPgIntegrationRepository(dbPool, log)
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()
		integrationRepo = rediscache.NewIntegrationRepository(integrationRepo, redisClient, cfg.IntegrationCacheTTL, log)
		checks["redis"] = redisPinger{redisClient}
		log.Info("Integration cache enabled", "ttl", cfg.IntegrationCacheTTL)
	}

	subscriberRepo := postgres.NewPgSubscriberRepository(dbPool, log)
	tenantRepo := postgres.NewPgTenantRepository(dbPool, log)
	messageRepo := postgres.NewPgMessageRepository(dbPool, log)
	detailRepo := postgres.NewPgExecutionDetailRepository(dbPool, log)

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}
	log.Info("Provider adapters registered", "providers", registry.IDs())

	selector, err := app.NewIntegrationSelector(integrationRepo, log)
	if err != nil {
		return err
	}
	dispatcher := app.NewDispatcher(
		app.NewRecipientResolver(subscriberRepo, tenantRepo, log),
		template.NewHandlebarsRenderer(),
		domain.DefaultChannelSpecs(),
		selector,
		registry,
		messageRepo,
		app.NewAuditRecorder(detailRepo, log),
		app.NewRetentionPolicy(cfg.StoreContentDefault, retentionOverrides),
		log,
	)
	consumer := app.NewJobConsumer(natsClient, dispatcher, cfg.DispatchJobTimeout, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(httpadapter.NewAuditHandler(detailRepo, messageRepo, log), checks, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		if err := consumer.Start(groupCtx, cfg.DispatchSubject, cfg.DispatchQueueGroup); err != nil {
			return err
		}
		<-groupCtx.Done()
		log.Info("Stopping job consumer")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := consumer.Stop(stopCtx); err != nil {
			log.Warn("Job consumer did not drain cleanly", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Ops HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("Service is ready.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service stopped with error", "error", err)
		return err
	}
	log.Info("Service shut down gracefully.")
	return nil
}

func buildRegistry(cfg *config.Config, log *slog.Logger) (*provider.Registry, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	adapters := []provider.Adapter{
		provider.NewFCMProvider(log, cfg.FCMBaseURL, httpClient),
		provider.NewExpoProvider(log, cfg.ExpoBaseURL, httpClient),
		provider.NewTelegramProvider(log, cfg.TelegramAPIURL, httpClient),
	}
	if cfg.MockProvidersEnabled {
		adapters = append(adapters,
			provider.NewMockProvider(log, core_domain.ProviderMockPush, core_domain.ChannelPush, false, 0),
			provider.NewMockProvider(log, core_domain.ProviderMockChat, core_domain.ChannelChat, false, 0),
		)
	}
	return provider.NewRegistry(adapters...)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
