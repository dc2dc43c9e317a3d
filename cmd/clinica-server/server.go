package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/config"
	"github.com/clinica/clinica/internal/domain/admin"
	"github.com/clinica/clinica/internal/domain/billing"
	"github.com/clinica/clinica/internal/domain/clinical"
	"github.com/clinica/clinica/internal/domain/identity"
	"github.com/clinica/clinica/internal/domain/scheduling"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/internal/platform/db"
	"github.com/clinica/clinica/internal/platform/middleware"
	"github.com/clinica/clinica/internal/platform/reporting"
	"github.com/clinica/clinica/internal/platform/uploads"
)

const (
	version         = "1.0.0"
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	jsonBodyLimit   = "1M"
)

// longRunningPrefixes stream archives and are exempt from the request timeout.
var longRunningPrefixes = []string{"/api/v1/backup", "/api/v1/export"}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(os.Stdout, "")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(os.Stdout, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	applied, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	if applied > 0 {
		logger.Info().Int("count", applied).Msg("applied migrations")
	}

	revoked := auth.NewTokenRevocationStore(10 * time.Minute)
	defer revoked.Close()
	stop := make(chan struct{})
	defer close(stop)

	e, authSvc, err := newServer(cfg, pool, revoked, stop, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	if seeded, err := authSvc.EnsureAdmin(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin user")
	} else if seeded {
		logger.Info().Msg("created initial admin account")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with every service wired to pool.
func newServer(cfg *config.Config, pool *pgxpool.Pool, revoked *auth.TokenRevocationStore, stop <-chan struct{}, logger zerolog.Logger) (*echo.Echo, *auth.Service, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(jsonBodyLimit, cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(requestTimeout, longRunningPrefixes...))
	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		SigningKey:  cfg.SigningKey(),
		Revocations: revoked,
		DevMode:     cfg.IsDev(),
		Skipper:     auth.AuthSkipper,
	}))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg, stop)))
	apiV1.Use(middleware.AccessLog(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	tx := db.NewTransactor(pool)

	// Auth
	tokens := auth.NewTokenIssuer(cfg.SigningKey(), cfg.SessionTTL)
	authSvc := auth.NewService(auth.NewUserRepoPG(pool), tokens, revoked, logger)
	auth.NewHandler(authSvc, cfg.TLSEnabled).RegisterRoutes(apiV1)

	// Uploads back clinical attachments and billing receipts.
	uploadStore, err := uploads.NewStore(cfg.UploadDir, uploads.NewMetadataRepo(pool), logger)
	if err != nil {
		return nil, nil, err
	}
	uploads.NewHandler(uploadStore).RegisterRoutes(apiV1)

	// Record store: patients and professionals
	identitySvc := identity.NewService(identity.NewPatientRepoPG(pool), identity.NewProfessionalRepoPG(pool), logger)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	// Admin: insurance plans, lookups, clinic settings
	adminSvc := admin.NewService(
		admin.NewInsurancePlanRepo(pool),
		admin.NewLookupRepo(pool),
		admin.NewSettingsRepo(pool),
		admin.DetectLANURL(lanScheme(cfg), cfg.Port),
		logger,
	)
	admin.NewHandler(adminSvc).RegisterRoutes(apiV1)

	// Scheduling engine
	schedSvc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		identitySvc,
		tx,
		db.AdvisoryXactLock,
		scheduling.Config{WalkInFallbackProfessionalID: cfg.WalkInFallbackProfID},
		logger,
	)
	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)

	// Billing engine
	billingSvc := billing.NewService(
		billing.NewChargeRepoPG(pool),
		billing.NewCashLedgerPG(pool),
		tx,
		adminSvc.ReceiptHeader,
		uploadStore.Exists,
		logger,
	)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Clinical notes
	clinicalSvc := clinical.NewService(clinical.NewNoteRepo(pool), uploadStore.Exists, logger)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)

	// Dashboard, reports, exports and backup
	reportSvc := reporting.NewService(reporting.NewQuerier(pool), cfg.BackupDir, logger)
	reporting.NewHandler(reportSvc).RegisterRoutes(apiV1)

	return e, authSvc, nil
}

func rateLimitConfig(cfg *config.Config, stop <-chan struct{}) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	rl.Stop = stop
	return rl
}

func lanScheme(cfg *config.Config) string {
	if cfg.TLSEnabled {
		return "https"
	}
	return "http"
}
