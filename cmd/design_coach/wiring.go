package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/coach"
	"github.com/jonathan/design-coach/internal/config"
	"github.com/jonathan/design-coach/internal/db"
	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/generation"
	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/review"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// loadConfig loads the effective configuration; the --verbose flag turns on Verbose.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// buildService wires the candidate sources and reviewer. Without an API key both sources
// answer from fixtures and the reviewer returns fallback output. The returned client may be
// nil; the caller closes it otherwise.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...coach.Option) (*coach.Service, llm.Client, error) {
	var client llm.Client
	if cfg.HasModel() {
		c, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		client = c
	}

	primaryStub := generation.NewStubSource(generation.StubPrimary)
	secondaryStub := generation.NewStubSource(generation.StubSecondary)

	var primary, secondary generation.Source = primaryStub, secondaryStub
	if client != nil {
		primary = generation.NewLLMSource("primary", client, llm.TierLite, primaryStub, logger)
		if cfg.SecondarySource == config.SecondaryLLM {
			secondary = generation.NewLLMSource("secondary", client, llm.TierStandard, secondaryStub, logger)
		}
	} else {
		logger.Warn("no model API key configured; answering from fixture lists")
	}

	reviewer := review.NewReviewer(client, llm.TierStandard, logger)
	svc, err := coach.NewService(primary, secondary, reviewer, logger, opts...)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, err
	}
	return svc, client, nil
}

// openDraftStore opens the configured draft backend.
func openDraftStore(ctx context.Context, cfg *config.Config) (drafts.Store, error) {
	switch cfg.DraftStore {
	case config.StoreSQLite:
		return drafts.NewSQLiteStore(cfg.SQLitePath)
	case config.StorePostgres:
		return db.OpenDraftStore(ctx, cfg.DatabaseURL)
	default:
		return drafts.NewMemoryStore(), nil
	}
}
