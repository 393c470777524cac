package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/straye-as/lead-api/docs"
	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/config"
	"github.com/straye-as/lead-api/internal/database"
	"github.com/straye-as/lead-api/internal/datastore"
	"github.com/straye-as/lead-api/internal/http/handler"
	"github.com/straye-as/lead-api/internal/http/middleware"
	"github.com/straye-as/lead-api/internal/http/router"
	"github.com/straye-as/lead-api/internal/jobs"
	"github.com/straye-as/lead-api/internal/logger"
	"github.com/straye-as/lead-api/internal/realtime"
	"github.com/straye-as/lead-api/internal/repository"
	"github.com/straye-as/lead-api/internal/service"
	"github.com/straye-as/lead-api/internal/session"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/workflow"
	"go.uber.org/zap"
)

// @title Straye Lead API
// @version 1.0
// @description Opportunity lifecycle, filtering and reporting API for sales teams

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = ""
	}

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	backend, closeBackend, err := newDataStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	sessions, redisClient, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores share one notifier so every change reaches the realtime hub
	opportunities := store.NewOpportunityStore(backend, log)
	users := store.NewUserDirectory(backend, log, store.WithNotifier(opportunities.Notifier()))
	activities := store.NewActivityLog(opportunities, backend, log)

	syncJob := jobs.NewStoreSyncJob(log,
		jobs.NamedLoader{Name: "users", Loader: users},
		jobs.NamedLoader{Name: "opportunities", Loader: opportunities},
		jobs.NamedLoader{Name: "activities", Loader: activities},
	)
	loadCtx, cancelLoad := context.WithTimeout(ctx, jobs.DefaultStoreSyncTimeout)
	err = syncJob.Run(loadCtx)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("failed to load stores: %w", err)
	}

	// Services
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTLDuration())
	wf := workflow.New(opportunities, activities, log)
	opportunityService := service.NewOpportunityService(opportunities, activities, users, wf, log)
	userService := service.NewUserService(users, opportunities, log)
	dashboardService := service.NewDashboardService(opportunities, users, service.Targets{
		Admin: cfg.Reports.AdminRevenueTarget,
		Sales: cfg.Reports.SalesRevenueTarget,
	}, log)
	authService := service.NewAuthService(users, tokens, sessions, cfg.Auth.RequirePassword, log)

	// Realtime change feed
	hub := realtime.NewHub(opportunities, log)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)
	unsubscribe := opportunities.Notifier().Subscribe(hub.Publish)
	defer unsubscribe()

	// Middleware
	authMiddleware := auth.NewMiddleware(tokens, sessions, cfg.Auth.APIKey, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	checks := map[string]router.HealthCheck{
		"datastore": backend.Ping,
	}
	if redisClient != nil {
		checks["sessions"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, router.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Opportunity: handler.NewOpportunityHandler(opportunityService, log),
		Activity:    handler.NewActivityHandler(opportunityService, log),
		User:        handler.NewUserHandler(userService, log),
		Dashboard:   handler.NewDashboardHandler(dashboardService, log),
		Events:      handler.NewEventsHandler(hub, middleware.NewOriginPolicy(&cfg.CORS, cfg.App.Environment, log), log),
	}, checks)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterStoreSyncJob(scheduler, syncJob, cfg.Jobs.StoreSyncCron, jobs.DefaultStoreSyncTimeout); err != nil {
			log.Error("Failed to register store sync job", zap.Error(err))
		} else {
			scheduler.Start()
		}
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		// Close websocket clients before draining HTTP
		stopHub()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// newDataStore builds the configured backend and a function releasing it
func newDataStore(cfg *config.Config, log *zap.Logger) (store.DataStore, func(), error) {
	if cfg.DataStore.Backend == "rest" {
		client, err := datastore.NewClient(datastore.Config{
			BaseURL: cfg.DataStore.BaseURL,
			Timeout: cfg.DataStore.TimeoutDuration(),
		}, nil, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		log.Info("Using REST data store", zap.String("base_url", cfg.DataStore.BaseURL))
		return client, func() {}, nil
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Mode == "sqlite" {
		// local development has no migration step
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
	}
	log.Info("Using database data store", zap.String("mode", cfg.Database.Mode))

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repository.NewStore(db), closeDB, nil
}

// newSessionStore returns the session store and, in redis mode, its client
func newSessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (session.Store, *redis.Client, error) {
	if cfg.Session.Store != "redis" {
		log.Info("Using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	}

	client, err := session.NewRedisClient(ctx, session.RedisConfig{
		Addr:     cfg.Session.RedisAddr,
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Using redis session store", zap.String("addr", cfg.Session.RedisAddr))
	return session.NewRedisStore(client, cfg.Session.KeyPrefix), client, nil
}
