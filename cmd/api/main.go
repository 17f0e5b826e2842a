// Package main is the entrypoint for the gallery API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/photobooth/gallery/internal/cache"
	"github.com/photobooth/gallery/internal/config"
	"github.com/photobooth/gallery/internal/handler"
	"github.com/photobooth/gallery/internal/logger"
	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/middleware"
	"github.com/photobooth/gallery/internal/notify"
	"github.com/photobooth/gallery/internal/repository"
	"github.com/photobooth/gallery/internal/server"
	"github.com/photobooth/gallery/internal/service"
	"github.com/photobooth/gallery/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	log, flush, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.AppEnv,
		Release:     version,
	})
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		return err
	}
	defer flush()
	slog.SetDefault(log)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database",
			slog.String("error", logger.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", logger.RedactURL(cfg.DatabaseURL)),
		)
		return err
	}
	log.Info("connected to database")

	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			log.Error("failed to run migrations", "error", err)
			repo.Close()
			return err
		}
		log.Info("migrations applied")
	}

	cacheClient, err := cache.New(ctx, cache.Options{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		DialTimeout:  cfg.RedisDialTimeout,
	})
	if err != nil {
		log.Error("failed to connect to Redis",
			slog.String("error", logger.SanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", logger.RedactURL(cfg.RedisURL)),
		)
		repo.Close()
		return err
	}
	log.Info("connected to Redis")

	store, blobs, err := newStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		_ = cacheClient.Close()
		repo.Close()
		return err
	}

	var notifier notify.Notifier
	switch cfg.NotifierDriver {
	case config.NotifierMemory:
		notifier = notify.NewMemoryNotifier(cfg.EventTTL)
	default:
		notifier = notify.NewRedisNotifier(cacheClient, cfg.EventTTL)
	}

	recorder := metrics.NewInMemory()
	tokenService := service.NewTokenService(repo, repo, recorder, log)
	imageService := service.NewImageService(repo, store, notifier, cfg.MaxUploadSize, recorder, log)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:      log,
		Version:     version,
		Tokens:      tokenService,
		Images:      imageService,
		Notifier:    notifier,
		Metrics:     recorder,
		Snapshotter: recorder,
		Health: []handler.Dependency{
			{Name: "postgres", Checker: repo},
			{Name: "redis", Checker: cacheClient},
		},
		Blobs: blobs,
		RateLimit: middleware.RateLimitConfig{
			Limiter:      cacheClient,
			TokenEnabled: cfg.RateLimitAPIEnabled,
			TokenRPM:     cfg.RateLimitTokenRPM,
			TokenBurst:   cfg.RateLimitTokenBurst,
			IPEnabled:    cfg.RateLimitIPEnabled,
			IPRPS:        cfg.RateLimitIPRPS,
			IPBurst:      cfg.RateLimitIPBurst,
		},
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SSEPollInterval:    cfg.SSEPollInterval,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, log)

	// LIFO: pending token touches drain before Redis and Postgres close.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("token touches", func(context.Context) error {
		tokenService.Wait()
		return nil
	})

	log.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"storage", cfg.StorageDriver,
		"notifier", cfg.NotifierDriver,
	)

	if err := srv.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}

// newStorage builds the configured blob store. The handler is non-nil only
// for the local driver, which serves blobs itself.
func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, http.Handler, error) {
	if cfg.StorageDriver == config.StorageS3 {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKeyID,
			SecretKey:     cfg.S3SecretAccessKey,
			Endpoint:      cfg.S3Endpoint,
			PublicURL:     cfg.S3PublicURL,
			Presign:       cfg.S3Presign,
			PresignExpiry: cfg.S3PresignExpiry,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}

	local, err := storage.NewLocal(cfg.StorageRoot, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return local, local.Handler(), nil
}
