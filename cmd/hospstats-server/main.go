package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hospstats/hospstats/internal/config"
	"github.com/hospstats/hospstats/internal/domain/dashboard"
	"github.com/hospstats/hospstats/internal/domain/report"
	"github.com/hospstats/hospstats/internal/platform/auth"
	"github.com/hospstats/hospstats/internal/platform/db"
	"github.com/hospstats/hospstats/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospstats-server",
		Short: "Hospital statistics API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the statistics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// tokenCmd mints a facility token for one facility code. Operators hand
// these to the facilities that embed the portal.
func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <facility-code>",
		Short: "Mint a signed facility token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			codec := auth.NewFacilityCodec([]byte(cfg.FacilityTokenSecret))
			token, err := codec.EncodeFacility(args[0])
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// The pool is built lazily on first use and rebuilt with backoff when the
	// warehouse drops; startup does not require the warehouse to be up.
	manager := db.NewManager(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	defer manager.Close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(manager))

	apiV1 := e.Group("/api/v1")

	// Dashboard domain
	codec := auth.NewFacilityCodec([]byte(cfg.FacilityTokenSecret))
	warehouse := dashboard.NewWarehouse(manager, cfg.BatchMaxWorkers, cfg.DBAcquireTimeout)
	dashboardSvc := dashboard.NewService(dashboard.NewResolver(codec), warehouse, logger)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	// Report domain
	runner := report.NewRunner(manager, cfg.DBAcquireTimeout)
	reportSvc := report.NewService(runner, cfg.ReportRowCap, logger)
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
