// Package coach runs the validation stages of the interview wizard: it gathers reference
// lists from two independent candidate sources, merges them into a consensus list, and asks
// the reviewer how the user's answers compare.
package coach

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/design-coach/internal/generation"
	"github.com/jonathan/design-coach/internal/matching"
	"github.com/jonathan/design-coach/internal/review"
)

// Recorder receives stage-level events worth counting.
type Recorder interface {
	// MergeFallback is called when a merge found no common items and blended instead.
	MergeFallback(stage string)
}

type nopRecorder struct{}

func (nopRecorder) MergeFallback(string) {}

// Service runs the wizard stages.
type Service struct {
	primary   generation.Source
	secondary generation.Source
	reviewer  *review.Reviewer
	logger    *zap.Logger
	recorder  Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the recorder that receives merge fallback events.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a Service. The primary source's order wins when merging.
func NewService(primary, secondary generation.Source, reviewer *review.Reviewer, logger *zap.Logger, opts ...Option) (*Service, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("coach: both candidate sources are required")
	}
	if reviewer == nil {
		reviewer = review.NewReviewer(nil, "", logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		primary:   primary,
		secondary: secondary,
		reviewer:  reviewer,
		logger:    logger,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// merge runs the matcher and reports blend fallbacks for stage.
func (s *Service) merge(stage string, listA, listB []string) []string {
	result, source := matching.MergeWithSource(listA, listB)
	if source == matching.SourceBlend {
		s.recorder.MergeFallback(stage)
		s.logger.Debug("no common candidates, blended lists",
			zap.String("stage", stage),
			zap.Int("primary", len(listA)),
			zap.Int("secondary", len(listB)),
		)
	}
	return result
}

// generatePair asks both sources for a list concurrently.
func generatePair[T any](ctx context.Context, s *Service, gen func(context.Context, generation.Source) (T, error)) (T, T, error) {
	var a, b T
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := gen(gCtx, s.primary)
		if err != nil {
			return fmt.Errorf("%s: %w", s.primary.Name(), err)
		}
		a = result
		return nil
	})
	g.Go(func() error {
		result, err := gen(gCtx, s.secondary)
		if err != nil {
			return fmt.Errorf("%s: %w", s.secondary.Name(), err)
		}
		b = result
		return nil
	})

	if err := g.Wait(); err != nil {
		var zero T
		return zero, zero, err
	}
	return a, b, nil
}
