package generation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/prompts"
)

// LLMSource generates reference lists with a model. Any model failure (transport error,
// empty answer, undecodable JSON) is logged and answered from the fallback source instead.
type LLMSource struct {
	name     string
	client   llm.Client
	tier     llm.ModelTier
	fallback Source
	logger   *zap.Logger
}

// NewLLMSource creates a model-backed source. fallback must not be nil.
func NewLLMSource(name string, client llm.Client, tier llm.ModelTier, fallback Source, logger *zap.Logger) *LLMSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSource{
		name:     name,
		client:   client,
		tier:     tier,
		fallback: fallback,
		logger:   logger,
	}
}

// Name implements Source.
func (s *LLMSource) Name() string {
	return s.name
}

// Requirements implements Source.
func (s *LLMSource) Requirements(ctx context.Context, topic string) (Requirements, error) {
	obj, err := s.generate(ctx, "requirements", map[string]string{"Topic": topic})
	if err != nil {
		s.logFallback("requirements", topic, err)
		return s.fallback.Requirements(ctx, topic)
	}
	return Requirements{
		Functional:    llm.StringList(obj, MaxRequirements, "functional_requirements", "functional"),
		NonFunctional: llm.StringList(obj, MaxRequirements, "non_functional_requirements", "nonFunctional"),
	}, nil
}

// APIs implements Source.
func (s *LLMSource) APIs(ctx context.Context, topic string) ([]string, error) {
	obj, err := s.generate(ctx, "apis", map[string]string{"Topic": topic})
	if err != nil {
		s.logFallback("apis", topic, err)
		return s.fallback.APIs(ctx, topic)
	}
	return llm.StringList(obj, MaxAPIs, "apis"), nil
}

// DiagramElements implements Source. A blank Mermaid answer is replaced by the fallback's.
func (s *LLMSource) DiagramElements(ctx context.Context, topic string) (Diagram, error) {
	obj, err := s.generate(ctx, "diagram", map[string]string{"Topic": topic})
	if err != nil {
		s.logFallback("diagram", topic, err)
		return s.fallback.DiagramElements(ctx, topic)
	}

	diagram := Diagram{
		Elements: llm.StringList(obj, MaxElements, "elements"),
		Mermaid:  llm.String(obj, "mermaid_diagram", "suggested_diagram"),
	}
	if diagram.Mermaid == "" {
		fb, err := s.fallback.DiagramElements(ctx, topic)
		if err != nil {
			return Diagram{}, err
		}
		diagram.Mermaid = fb.Mermaid
	}
	return diagram, nil
}

// EstimationItems implements Source.
func (s *LLMSource) EstimationItems(ctx context.Context, topic string) ([]string, error) {
	obj, err := s.generate(ctx, "estimation", map[string]string{"Topic": topic})
	if err != nil {
		s.logFallback("estimation", topic, err)
		return s.fallback.EstimationItems(ctx, topic)
	}
	return llm.StringList(obj, MaxElements, "elements"), nil
}

// DataModelElements implements Source.
func (s *LLMSource) DataModelElements(ctx context.Context, topic string, apiDesign []string) ([]string, error) {
	data := map[string]string{"Topic": topic, "APIDesign": ""}
	if len(apiDesign) > 0 {
		data["APIDesign"] = "\n\nAPI design (suggest tables that support these APIs):\n" + prompts.Bullets(apiDesign, "")
	}

	obj, err := s.generate(ctx, "data_model", data)
	if err != nil {
		s.logFallback("data_model", topic, err)
		return s.fallback.DataModelElements(ctx, topic, apiDesign)
	}
	return llm.StringList(obj, MaxElements, "elements"), nil
}

// generate renders the stage prompts, calls the model and decodes its JSON object.
func (s *LLMSource) generate(ctx context.Context, stage string, data map[string]string) (map[string]any, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}

	system, err := prompts.Get(prompts.GenerationFile, stage+".system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Get(prompts.GenerationFile, stage+".user")
	if err != nil {
		return nil, err
	}

	text, err := s.client.GenerateJSON(ctx, llm.Request{
		System: system,
		Prompt: prompts.Format(user, data),
		Tier:   s.tier,
	})
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", stage, err)
	}

	return llm.DecodeObject(text)
}

func (s *LLMSource) logFallback(stage, topic string, err error) {
	s.logger.Warn("model generation failed, using fallback",
		zap.String("source", s.name),
		zap.String("stage", stage),
		zap.String("topic", topic),
		zap.String("fallback", s.fallback.Name()),
		zap.Error(err),
	)
}
