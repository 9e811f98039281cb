// Package review judges the user's interview answers: coverage of a reference list,
// per-line feedback on estimations and schemas, and narrative reviews of flows, deep dives
// and detailed diagrams.
//
// A Reviewer never fails. Without a model client, or when the model call fails, every
// method returns deterministic fallback output.
package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/prompts"
)

// Reviewer asks a model to review answers.
type Reviewer struct {
	client llm.Client
	tier   llm.ModelTier
	logger *zap.Logger
}

// NewReviewer creates a Reviewer. client may be nil, in which case only fallback output is produced.
func NewReviewer(client llm.Client, tier llm.ModelTier, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{client: client, tier: tier, logger: logger}
}

// Enabled reports whether a model client is configured.
func (r *Reviewer) Enabled() bool {
	return r.client != nil
}

// ask renders the prompt pair stored under key and decodes the model's JSON object.
func (r *Reviewer) ask(ctx context.Context, key string, data map[string]string) (map[string]any, error) {
	if r.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}

	system, err := prompts.Get(prompts.ReviewFile, key+".system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Get(prompts.ReviewFile, key+".user")
	if err != nil {
		return nil, err
	}

	text, err := r.client.GenerateJSON(ctx, llm.Request{
		System: system,
		Prompt: prompts.Format(user, data),
		Tier:   r.tier,
	})
	if err != nil {
		return nil, fmt.Errorf("%s review failed: %w", key, err)
	}
	return llm.DecodeObject(text)
}

func (r *Reviewer) logFallback(key string, err error) {
	r.logger.Warn("model review failed, using fallback",
		zap.String("review", key),
		zap.Error(err),
	)
}
