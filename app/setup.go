package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/course-market-api/api"
	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/router"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/services/assets"
	"github.com/sahilchouksey/course-market-api/services/cron"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/tracing"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(getEnv.GO_ENV, getEnv.LOG_LEVEL)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	if getEnv.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    getEnv.OTEL_EXPORTER_OTLP_ENDPOINT,
		ServiceName: getEnv.OTEL_SERVICE_NAME,
		Environment: getEnv.GO_ENV,
	}, log)
	if err != nil {
		log.Warn("failed to initialize tracing", "error", err.Error())
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("failed to flush traces", "error", err.Error())
			}
		}()
	}

	// Storage: chosen once, never switched at request time
	store, err := database.NewConnector().Connect(ctx, getEnv, log)
	if err != nil {
		log.Error("storage unavailable, refusing to start",
			"backend", getEnv.STORAGE_BACKEND,
			"error", err.Error(),
		)
		return err
	}
	defer store.Close()

	metrics.SetStorageBackend(store.Backend())
	log.Info("storage ready", "backend", store.Backend())

	if store.Backend() == database.BackendMemory && getEnv.SEED_DEMO_DATA {
		if err := database.NewSeeder(store, log).SeedAll(ctx); err != nil {
			log.Warn("failed to seed demo data", "error", err.Error())
		}
	}

	// Redis backs brute force protection and the token blacklist. Without it
	// the blacklist lives in process memory and login is not throttled.
	var (
		tokenCache cache.Store
		bruteForce *middleware.BruteForceProtection
	)
	if getEnv.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(ctx, getEnv.REDIS_URL)
		if err != nil {
			log.Warn("failed to connect to redis, brute force protection disabled", "error", err.Error())
		} else {
			tokenCache = redisCache
			bruteForce = middleware.NewBruteForceProtection(redisCache, log)
		}
	}
	if tokenCache == nil {
		tokenCache = cache.NewMemoryCache()
	}
	defer tokenCache.Close()

	blacklist := auth.NewBlacklistService(tokenCache)
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Expiry: getEnv.JWT_EXPIRY,
		Issuer: getEnv.JWT_ISSUER,
	})

	provider, err := newPaymentProvider(getEnv)
	if err != nil {
		log.Error("payment provider unavailable, refusing to start", "error", err.Error())
		return err
	}
	log.Info("payment provider ready", "provider", provider.Name())
	enrollments := services.NewEnrollmentService(store, provider, getEnv.PAYMENT_CURRENCY, log)

	var uploader assets.Uploader
	spacesConfig := assets.SpacesConfig{
		AccessKey: getEnv.SPACES_ACCESS_KEY,
		SecretKey: getEnv.SPACES_SECRET_KEY,
		Bucket:    getEnv.SPACES_BUCKET,
		Region:    getEnv.SPACES_REGION,
		Endpoint:  getEnv.SPACES_ENDPOINT,
		CDNURL:    getEnv.SPACES_CDN_URL,
	}
	if spacesConfig.Configured() {
		spaces, err := assets.NewSpacesClient(spacesConfig)
		if err != nil {
			log.Warn("failed to initialize spaces client, uploads disabled", "error", err.Error())
		} else {
			uploader = spaces
		}
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	if getEnv.CRON_ENABLED {
		cronManager := cron.NewCronManager(store, enrollments, blacklist, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("failed to start cron jobs", "error", err.Error())
		} else {
			defer cronManager.Stop()
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), log)

	router.SetupRoutes(server.GetEngine(), router.Dependencies{
		Store:         store,
		Log:           log,
		JWT:           jwtManager,
		Blacklist:     blacklist,
		Cache:         tokenCache,
		BruteForce:    bruteForce,
		Enrollments:   enrollments,
		Uploader:      uploader,
		SecureCookies: getEnv.IsProduction(),
		Security: middleware.SecurityConfig{
			AllowedOrigins:    getEnv.ALLOWED_ORIGINS,
			RateLimitRequests: getEnv.RATE_LIMIT,
			RateLimitWindow:   time.Minute,
			AccessLog:         true,
		},
	})

	return server.Run(ctx)
}
