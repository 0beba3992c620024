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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edi/edi/internal/config"
	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/filelog"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/auth"
	"github.com/edi/edi/internal/platform/db"
	"github.com/edi/edi/internal/platform/metrics"
	"github.com/edi/edi/internal/platform/middleware"
	"github.com/edi/edi/internal/platform/x12"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the decoding API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set; stored lookups and matching are disabled")
	}

	matchCfg, err := matching.LoadConfig(cfg.MatchingConfigPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.MatchingConfigPath).Msg("using default matching config")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(true)
	}

	e := newServer(cfg, logger, pool, matchCfg, m)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance. pool and m may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, matchCfg *matching.Config, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(m.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.MaxBodySize))

	// Auth middleware
	switch cfg.ResolvedAuthMode() {
	case config.AuthModeJWT:
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthJWTSecret),
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			Skipper:    auth.AuthSkipper,
		}))
	default:
		e.Use(auth.DevAuthMiddleware())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	if m != nil {
		e.GET("/metrics", m.Handler())
	}

	apiV1 := e.Group("/api/v1")

	var (
		claimRepo claims.Repository
		remitRepo remittance.Repository
		matcher   *matching.Matcher
	)
	if pool != nil {
		claimRepo = claims.NewRepoPG(pool)
		remitRepo = remittance.NewRepoPG(pool)
		matcher = matching.NewMatcher(matching.NewStorePG(pool), matchCfg)
		filelog.NewHandler(filelog.NewRepoPG(pool)).RegisterRoutes(apiV1)
	}

	x12.NewHandler().RegisterRoutes(apiV1)
	claims.NewHandler(claimRepo).RegisterRoutes(apiV1)
	remittance.NewHandler(remitRepo, matcher).RegisterRoutes(apiV1)

	return e
}
