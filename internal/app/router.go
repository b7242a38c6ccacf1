package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-lms/internal/catalog"
	"github.com/noah-isme/backend-lms/internal/config"
	"github.com/noah-isme/backend-lms/internal/health"
	"github.com/noah-isme/backend-lms/internal/obs"
	"github.com/noah-isme/backend-lms/internal/quote"
	"github.com/noah-isme/backend-lms/internal/ratelimit"
	"github.com/noah-isme/backend-lms/internal/resilience"
	"github.com/noah-isme/backend-lms/internal/security"
)

// Database is satisfied by *pgxpool.Pool.
type Database interface {
	catalog.RowQuerier
	health.Pinger
}

// Dependencies enumerates the shared clients the API is assembled from.
type Dependencies struct {
	DB              Database
	Redis           *redis.Client
	Validator       *validator.Validate
	LimiterStore    limiter.Store
	MetricsRegistry *prometheus.Registry
	Logger          zerolog.Logger
	Now             func() time.Time
}

// NewRouter wires the quote API, health probes and metrics endpoint.
func NewRouter(cfg *config.Config, deps Dependencies) (http.Handler, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.DB == nil || deps.Redis == nil {
		return nil, errors.New("database and redis are required")
	}
	logger := deps.Logger

	var (
		httpMetrics        *obs.HTTPMetrics
		quoteMetrics       *obs.QuoteMetrics
		breakerTransitions *prometheus.CounterVec
		reg                = deps.MetricsRegistry
	)
	if cfg.MetricsEnabled {
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), reg)
		quoteMetrics = obs.NewQuoteMetrics(cfg.MetricsNamespace, reg)
		breakerTransitions = obs.NewBreakerTransitions(cfg.MetricsNamespace, reg)
	}

	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("course_cache").
		WithLogger(logger).
		WithTransitions(breakerTransitions)

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Source:  catalog.Store{DB: deps.DB},
		Cache:   catalog.NewCache(deps.Redis, cfg.CourseCacheTTL),
		Breaker: breaker,
		Logger:  logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	quoteSvc := &quote.Service{
		Catalog:        catalogSvc,
		Taxes:          cfg,
		Store:          quote.NewStore(deps.Redis),
		TTL:            cfg.QuoteTTL,
		DefaultCountry: cfg.DefaultCountry,
		Now:            deps.Now,
		Metrics:        quoteMetrics,
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	quoteHandler := &quote.Handler{
		Svc:      quoteSvc,
		Validate: validate,
		Logger:   logger.With().Str("component", "quote").Logger(),
	}

	var previewMW []func(http.Handler) http.Handler
	if deps.LimiterStore != nil {
		l, err := ratelimit.New(cfg.PreviewRateLimit, deps.LimiterStore)
		if err != nil {
			return nil, err
		}
		previewMW = append(previewMW, ratelimit.Handler{
			Limiter: l,
			Key:     ratelimit.ByClientIP,
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.HSTSEnabled, NoStore: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{DB: deps.DB, Redis: deps.Redis},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		quoteHandler.Register(v, previewMW...)
	})
	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
