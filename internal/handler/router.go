package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/middleware"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/notify"
	"github.com/photobooth/gallery/internal/service"
	"github.com/photobooth/gallery/internal/storage"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Logger  *slog.Logger
	Version string

	Tokens   *service.TokenService
	Images   *service.ImageService
	Notifier notify.Notifier
	Metrics  metrics.Recorder

	// Snapshotter backs /metrics. Nil answers 503.
	Snapshotter metrics.Snapshotter
	Health      []Dependency

	// Blobs serves /storage/* for the local driver and sees the full path.
	// Nil disables the route.
	Blobs http.Handler

	// RateLimit is applied when its Limiter is set.
	RateLimit middleware.RateLimitConfig

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	SSEPollInterval    time.Duration
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	h := New(cfg.Version)
	health := NewHealthHandler(cfg.Health...)
	tokens := NewTokenHandler(cfg.Tokens, cfg.Logger)
	images := NewImageHandler(cfg.Images, cfg.Logger)
	events := NewEventsHandler(cfg.Notifier, cfg.SSEPollInterval, cfg.Metrics, cfg.Logger)
	metricsHandler := NewMetricsHandler(cfg.Snapshotter)

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:     cfg.IsDevelopment,
		CacheablePrefixes: []string{storage.PublicPrefix},
	}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Index)

	if cfg.Blobs != nil {
		r.Handle(storage.PublicPrefix+"*", cfg.Blobs)
	}

	authenticate := middleware.Auth(middleware.AuthConfig{
		Logger:  cfg.Logger,
		Tokens:  cfg.Tokens,
		Metrics: cfg.Metrics,
	})

	limitToken := passthrough
	limitIP := passthrough
	if cfg.RateLimit.Limiter != nil {
		rl := cfg.RateLimit
		rl.Logger = cfg.Logger
		limitToken = middleware.RateLimitToken(rl)
		limitIP = middleware.RateLimitIP(rl)
	}

	bodyLimit := passthrough
	if cfg.MaxRequestBodySize > 0 {
		bodyLimit = middleware.MaxBodySize(cfg.MaxRequestBodySize)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/tokens", func(r chi.Router) {
			r.Use(authenticate, limitToken, middleware.RequireAbility(model.AbilityWildcard), bodyLimit)

			r.Post("/", tokens.Create)
			r.Get("/user/{userId}", tokens.List)
			r.Delete("/user/{userId}", tokens.RevokeAll)
			r.Delete("/user/{userId}/{tokenId}", tokens.Revoke)
		})

		r.Route("/images", func(r chi.Router) {
			r.With(limitIP).Get("/", images.List)
			r.With(authenticate, limitToken, middleware.RequireAbility(model.AbilityUpload)).Post("/", images.Upload)
			r.With(authenticate, limitToken, middleware.RequireAbility(model.AbilityDelete), bodyLimit).Delete("/{id}", images.Delete)
		})

		r.With(limitIP).Get("/events", events.Stream)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
