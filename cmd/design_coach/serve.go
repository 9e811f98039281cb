package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/coach"
	"github.com/jonathan/design-coach/internal/config"
	"github.com/jonathan/design-coach/internal/server"
	"github.com/jonathan/design-coach/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: "Start an HTTP server that exposes the wizard's validation endpoints, the topic " +
		"catalog and, when JWT_SECRET is set, session-scoped draft storage.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics := server.NewMetrics()
	svc, client, err := buildService(cmd.Context(), cfg, logger, coach.WithRecorder(metrics))
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	deps := server.Deps{
		Service: svc,
		Limiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Metrics: metrics,
		Logger:  logger,
	}

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		logger.Warn("draft storage disabled", zap.Error(err))
	} else {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		store, err := openDraftStore(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to open draft store: %w", err)
		}
		deps.Drafts = store
		deps.Sessions = server.NewJWTService(jwtCfg)
		logger.Info("draft storage enabled", zap.String("store", cfg.DraftStore))
	}

	srv, err := server.New(server.Config{
		Port:               cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, deps)
	if err != nil {
		if deps.Drafts != nil {
			_ = deps.Drafts.Close()
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
