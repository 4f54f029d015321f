package main

import (
	"context"
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aarogya/queue/internal/config"
	"github.com/aarogya/queue/internal/domain/checkin"
	"github.com/aarogya/queue/internal/domain/doctor"
	"github.com/aarogya/queue/internal/domain/patient"
	"github.com/aarogya/queue/internal/domain/queue"
	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
	"github.com/aarogya/queue/internal/platform/accesslog"
	"github.com/aarogya/queue/internal/platform/auth"
	"github.com/aarogya/queue/internal/platform/db"
	"github.com/aarogya/queue/internal/platform/events"
	"github.com/aarogya/queue/internal/platform/logging"
	"github.com/aarogya/queue/internal/platform/middleware"
	"github.com/aarogya/queue/internal/platform/telemetry"
	"github.com/aarogya/queue/migrations"
)

const (
	requestTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
	bodyLimit       = "64K"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Dev:        cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid config")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if cfg.AutoMigrate {
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx, db.DefaultSchema)
		if err != nil {
			logger.Error().Err(err).Msg("migration failed")
			return err
		}
		logger.Info().Int("applied", n).Msg("migrations up to date")
	}

	secret, generated, err := resolveSessionSecret(cfg.JWTSecret)
	if err != nil {
		return err
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set, using a random key; doctor sessions end on restart")
	}

	metrics := telemetry.New()
	metrics.ObservePool(func() (int32, int32, int32) {
		s := pool.Stat()
		return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
	})

	// Queue events
	hub := events.NewHub(logger)
	var publisher events.Publisher = hub
	var relay *events.Relay
	if cfg.RedisURL != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to redis")
			return err
		}
		defer client.Close()
		publisher = events.NewRedisPublisher(client, cfg.RedisChannel)
		relay = events.NewRelay(client, cfg.RedisChannel, hub, logger)
		logger.Info().Str("channel", cfg.RedisChannel).Msg("queue events relayed through redis")
	}

	e := newEcho(cfg, logger, metrics)
	if err := registerRoutes(e, cfg, logger, pool, metrics, hub, publisher, auth.NewIssuer(secret, cfg.SessionTTL)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			// Dashboards keep polling without the relay, so its failure
			// does not stop the server.
			if err := relay.Run(gctx); err != nil {
				logger.Error().Err(err).Msg("queue event relay stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger, metrics))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(middleware.RequestTimeout(requestTimeout))
	return e
}

func registerRoutes(e *echo.Echo, cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool,
	metrics *telemetry.Metrics, hub *events.Hub, publisher events.Publisher, issuer *auth.Issuer) error {
	policy, err := triage.NewPolicy(cfg.HighThreshold, cfg.MediumThreshold)
	if err != nil {
		return err
	}

	// Domain services
	patientSvc := patient.NewService(patient.NewRepoPG(pool), cfg.PhoneRegion)

	visitSvc := visit.NewService(visit.NewRepoPG(pool), logger)
	visitSvc.SetPublisher(publisher)
	visitSvc.SetRecorder(metrics)

	engine := queue.NewEngine(visitSvc, queue.Options{
		MinutesPerPatient: cfg.MinutesPerPatient,
		AgingPerMinute:    cfg.AgingPerMinute,
		PollInterval:      cfg.PollInterval(),
	})
	engine.SetRecorder(metrics)

	checkinSvc := newCheckinService(cfg, logger, policy, patientSvc, visitSvc, engine, metrics)

	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), issuer)

	// Ops
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(db.ProbePool(pool)))
	e.GET("/metrics", metrics.Handler())

	wsHandler := events.NewHandler(hub, func(topic string) bool {
		_, err := triage.ParseTier(topic)
		return err == nil
	}, cfg.CORSOrigins)
	wsHandler.RegisterRoutes(e)

	// API groups
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	doctorGroup := apiV1.Group("", auth.Middleware(issuer, auth.AuthSkipper), middleware.Audit(logger, accesslog.NewStore(pool)))

	// Kiosk
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	checkin.NewHandler(checkinSvc).RegisterRoutes(apiV1)

	// Doctors
	doctor.NewHandler(doctorSvc).RegisterRoutes(doctorGroup)
	queue.NewHandler(engine).RegisterRoutes(doctorGroup)
	visit.NewHandler(visitSvc, patientSvc).RegisterRoutes(doctorGroup)

	return nil
}

// newCheckinService wires the kiosk flow with the configured collaborators,
// each behind its local fallback.
func newCheckinService(cfg *config.Config, logger zerolog.Logger, policy triage.Policy,
	patientSvc *patient.Service, visitSvc *visit.Service, engine *queue.Engine, metrics *telemetry.Metrics) *checkin.Service {
	var remoteScorer triage.Scorer
	if cfg.RiskScorerURL != "" {
		remoteScorer = triage.NewRemoteScorer(cfg.RiskScorerURL, triage.WithTimeout(cfg.CollaboratorTimeout))
	}
	scorer := triage.NewFallbackScorer(remoteScorer, logger)

	var remoteSummarizer triage.Summarizer
	if cfg.SummaryURL != "" {
		remoteSummarizer = triage.NewRemoteSummarizer(cfg.SummaryURL, triage.WithTimeout(cfg.CollaboratorTimeout))
	}
	summarizer := triage.NewFallbackSummarizer(remoteSummarizer, logger)

	svc := checkin.NewService(patientSvc, visitSvc, engine, scorer, summarizer,
		checkin.Config{Policy: policy, HistoryLimit: cfg.HistoryLimit}, logger)
	if metrics != nil {
		scorer.SetRecorder(metrics)
		summarizer.SetRecorder(metrics)
		svc.SetRecorder(metrics)
	}
	return svc
}

// resolveSessionSecret returns the configured signing secret or, when none is
// set, a random 32-byte key. The second return value is true when the key
// was generated.
func resolveSessionSecret(configured string) ([]byte, bool, error) {
	if configured != "" {
		return []byte(configured), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random session key: %w", err)
	}
	return key, true, nil
}
