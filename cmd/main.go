package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "schoolprops/docs"
	"schoolprops/internal/caching"
	"schoolprops/internal/common"
	"schoolprops/internal/config"
	"schoolprops/internal/handlers"
	"schoolprops/internal/jobs"
	"schoolprops/internal/jobs/background"
	"schoolprops/internal/middleware"
	"schoolprops/internal/repositories"
	"schoolprops/internal/repositories/memory"
	"schoolprops/internal/services"
	"schoolprops/pkg/database"
)

const version = "1.0.0"

// readMarkerTTL bounds how long a read marker outlives its notification.
const readMarkerTTL = 30 * 24 * time.Hour

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	common.InitLogger(cfg.Server.LogLevel, cfg.Server.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := handlers.NewHealthHandlers(version)

	// Store
	var store repositories.Store
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using the in-memory store; data is lost on exit")
		store = memory.NewStore()
	default:
		pool, err := database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("Failed to migrate database")
			}
		}
		store = repositories.NewStore(pool)
		health.Register("database", true, pool.Ping)
	}

	// Cache and read markers
	cacheSvc := caching.NewNoopCacheService()
	markers := caching.NewMemoryReadMarkers()
	if cfg.Redis.Addr != "" {
		client := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		cacheSvc = caching.NewRedisCacheService(client)
		markers = caching.NewRedisReadMarkers(client, readMarkerTTL)
		health.Register("redis", false, cacheSvc.Ping)
	} else {
		log.Info().Msg("REDIS_ADDR not set; item cache disabled, read markers kept in memory")
	}

	// Photo storage
	var photos services.PhotoStorage
	if cfg.Minio.Endpoint != "" {
		photos, err = services.NewMinioPhotoStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MinIO")
		}
		if err := photos.EnsureBucket(ctx); err != nil {
			log.Error().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("Photo bucket unavailable")
		}
		health.Register("minio", false, photos.Ping)
	} else {
		log.Info().Msg("MINIO_ENDPOINT not set; photo uploads disabled")
	}

	// Services
	inventorySvc := services.NewInventoryService(store, cacheSvc, nil)
	budgetSvc := services.NewBudgetService(store, nil)
	lifecycleSvc := services.NewLifecycleService(store, inventorySvc, budgetSvc, nil)
	repos := store.Repos()
	notificationSvc := services.NewNotificationService(repos.Requests, repos.Items, markers, nil)
	snapshotSvc := services.NewSnapshotService(store, nil)

	// Auth
	if cfg.Auth.GeneratedSecret {
		log.Warn().Msg("JWT_SECRET not set; using a generated secret, tokens will not survive a restart")
	}
	var jwks *keyfunc.JWKS
	if cfg.Auth.JWKSURL != "" {
		jwks, err = middleware.LoadJWKS(cfg.Auth.JWKSURL)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.Auth.JWKSURL).Msg("Failed to load JWKS")
		}
		defer jwks.EndBackground()
	}

	// Background jobs
	alerts := jobs.NewInventoryAlertService(inventorySvc, lifecycleSvc)
	scheduler, err := background.NewJobScheduler(alerts, background.Options{
		SweepInterval: cfg.Jobs.Sweep(),
		EscalateAfter: cfg.Jobs.Escalation(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create job scheduler")
	}
	scheduler.Start()

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(common.RequestLogger())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.BodyLimit(cfg.Server.BodyLimit))

	handlers.RegisterHealth(e, health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	set := handlers.Set{
		Items:         handlers.NewItemHandlers(inventorySvc),
		Requests:      handlers.NewRequestHandlers(lifecycleSvc),
		Notifications: handlers.NewNotificationHandlers(notificationSvc),
		Budget:        handlers.NewBudgetHandlers(budgetSvc),
		Snapshots:     handlers.NewSnapshotHandlers(snapshotSvc),
		Jobs:          handlers.NewJobHandlers(scheduler),
	}
	if photos != nil {
		set.Uploads = handlers.NewUploadHandlers(photos)
	}
	handlers.RegisterRoutes(middleware.VersionRoute(e, version), set,
		middleware.JWTMiddleware(cfg.Auth.JWTSecret, jwks),
		middleware.PrincipalMiddleware(),
	)

	go func() {
		log.Info().
			Str("version", version).
			Str("addr", cfg.Addr()).
			Str("store", cfg.Database.Driver).
			Msg("School props server starting")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}
}
