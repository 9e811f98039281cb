package coach

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/design-coach/internal/diagram"
	"github.com/jonathan/design-coach/internal/generation"
	"github.com/jonathan/design-coach/internal/matching"
	"github.com/jonathan/design-coach/internal/review"
	"github.com/jonathan/design-coach/internal/stages"
	"github.com/jonathan/design-coach/internal/types"
)

// Requirements merges both sources' functional and non-functional requirements and
// classifies the user's answers against each merged list.
func (s *Service) Requirements(ctx context.Context, req *types.RequirementsRequest) (*types.RequirementsResponse, error) {
	a, b, err := generatePair(ctx, s, func(ctx context.Context, src generation.Source) (generation.Requirements, error) {
		return src.Requirements(ctx, req.Topic)
	})
	if err != nil {
		return nil, fmt.Errorf("generating requirements: %w", err)
	}

	functional := s.merge(stages.Requirements, a.Functional, b.Functional)
	nonFunctional := s.merge(stages.Requirements, a.NonFunctional, b.NonFunctional)

	var fnCov, nfCov review.Coverage
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fnCov = s.reviewer.Coverage(gCtx, review.KindGeneral, functional, req.FunctionalReqs, nil)
		return nil
	})
	g.Go(func() error {
		nfCov = s.reviewer.Coverage(gCtx, review.KindGeneral, nonFunctional, req.NonFunctionalReqs, nil)
		return nil
	})
	_ = g.Wait()

	return &types.RequirementsResponse{
		Functional:           functional,
		NonFunctional:        nonFunctional,
		FunctionalMatched:    fnCov.Matched,
		FunctionalMissed:     fnCov.Missed,
		NonFunctionalMatched: nfCov.Matched,
		NonFunctionalMissed:  nfCov.Missed,
	}, nil
}

// APIs merges both sources' reference APIs and classifies the user's APIs against them.
func (s *Service) APIs(ctx context.Context, req *types.APIsRequest) (*types.APIsResponse, error) {
	a, b, err := generatePair(ctx, s, func(ctx context.Context, src generation.Source) ([]string, error) {
		return src.APIs(ctx, req.Topic)
	})
	if err != nil {
		return nil, fmt.Errorf("generating apis: %w", err)
	}

	apis := s.merge(stages.APIDesign, a, b)
	cov := s.reviewer.Coverage(ctx, review.KindGeneral, apis, req.APIs, nil)

	return &types.APIsResponse{APIs: apis, Matched: cov.Matched, Missed: cov.Missed}, nil
}

// Diagram compares the labels of a high-level draw.io diagram with the merged reference
// components and returns the primary source's Mermaid suggestion.
func (s *Service) Diagram(ctx context.Context, req *types.DiagramRequest) (*types.DiagramResponse, error) {
	a, b, err := generatePair(ctx, s, func(ctx context.Context, src generation.Source) (generation.Diagram, error) {
		return src.DiagramElements(ctx, req.Topic)
	})
	if err != nil {
		return nil, fmt.Errorf("generating diagram elements: %w", err)
	}

	elements := s.merge(stages.HighLevelDiagram, a.Elements, b.Elements)
	labels := diagram.ExtractLabels(req.DiagramXML)
	cov := s.reviewer.Coverage(ctx, review.KindDiagram, elements, labels, nil)

	return &types.DiagramResponse{
		Elements:         elements,
		Matched:          cov.Matched,
		Missed:           cov.Missed,
		SuggestedDiagram: a.Mermaid,
	}, nil
}

// Estimation merges the expected estimation items, classifies coverage and reviews each
// calculation line.
func (s *Service) Estimation(ctx context.Context, req *types.EstimationRequest) (*types.EstimationResponse, error) {
	a, b, err := generatePair(ctx, s, func(ctx context.Context, src generation.Source) ([]string, error) {
		return src.EstimationItems(ctx, req.Topic)
	})
	if err != nil {
		return nil, fmt.Errorf("generating estimation items: %w", err)
	}

	elements := s.merge(stages.BackOfEnvelope, a, b)

	var cov review.Coverage
	var feedback []types.LineFeedback
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cov = s.reviewer.Coverage(gCtx, review.KindGeneral, elements, req.Estimations, nil)
		return nil
	})
	g.Go(func() error {
		feedback = s.reviewer.Calculations(gCtx, req.Topic, req.Estimations)
		return nil
	})
	_ = g.Wait()

	return &types.EstimationResponse{
		Elements:            elements,
		Matched:             cov.Matched,
		Missed:              cov.Missed,
		CalculationFeedback: feedback,
	}, nil
}

// DataModel merges the expected schema elements, classifies coverage, reviews each schema
// line and suggests missing tables. The API design is context for all three.
func (s *Service) DataModel(ctx context.Context, req *types.DataModelRequest) (*types.DataModelResponse, error) {
	a, b, err := generatePair(ctx, s, func(ctx context.Context, src generation.Source) ([]string, error) {
		return src.DataModelElements(ctx, req.Topic, req.APIDesign)
	})
	if err != nil {
		return nil, fmt.Errorf("generating data model elements: %w", err)
	}

	elements := s.merge(stages.DataModel, a, b)

	var cov review.Coverage
	var schema review.SchemaReview
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cov = s.reviewer.Coverage(gCtx, review.KindSchema, elements, req.DataModel, req.APIDesign)
		return nil
	})
	g.Go(func() error {
		schema = s.reviewer.Schema(gCtx, req.Topic, req.DataModel, req.APIDesign)
		return nil
	})
	_ = g.Wait()

	return &types.DataModelResponse{
		Elements:               elements,
		Matched:                cov.Matched,
		Missed:                 cov.Missed,
		Feedback:               schema.Feedback,
		SuggestedMissingTables: schema.SuggestedMissingTables,
	}, nil
}

// Flow reviews an end-to-end flow summary against the components of the user's diagram.
func (s *Service) Flow(ctx context.Context, req *types.FlowRequest) (*types.FlowResponse, error) {
	var components []string
	if strings.TrimSpace(req.DiagramXML) != "" {
		components = diagram.ExtractLabels(req.DiagramXML)
	}
	resp := s.reviewer.Flow(ctx, req.Topic, req.FlowSummary, components)
	return &resp, nil
}

// DeepDives reviews each deep-dive summary and suggests topics the user has not covered.
func (s *Service) DeepDives(ctx context.Context, req *types.DeepDivesRequest) (*types.DeepDivesResponse, error) {
	resp := s.reviewer.DeepDives(ctx, req.Topic, req.DeepDives)
	return &resp, nil
}

// DetailedDiagram reviews a detailed diagram against every earlier stage's answers.
func (s *Service) DetailedDiagram(ctx context.Context, req *types.DetailedDiagramRequest) (*types.DetailedDiagramResponse, error) {
	design := review.Design{
		Topic:      req.Topic,
		Components: diagram.ExtractLabels(req.DiagramXML),
		APIDesign:  req.APIDesign,
		DataModel:  req.DataModel,
		HighLevel:  diagram.ExtractLabels(req.HighLevelDiagramXML),
		Flow:       req.EndToEndFlow,
		DeepDives:  req.DeepDives,
	}
	if req.Requirements != nil {
		design.Requirements = *req.Requirements
	}

	resp := s.reviewer.DetailedDiagram(ctx, design)
	resp.SuggestedDiagramPNG = ""
	return &resp, nil
}

// Merge runs the matcher directly on two candidate lists.
func (s *Service) Merge(req *types.MergeRequest) types.MergeResponse {
	result, source := matching.MergeWithSource(req.ListA, req.ListB)
	return types.MergeResponse{Result: result, Source: string(source)}
}
