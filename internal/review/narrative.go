package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/prompts"
	"github.com/jonathan/design-coach/internal/types"
)

// Fallback texts for the narrative reviews.
const (
	EmptyFlowFeedback        = "No end-to-end flow provided."
	FlowStubFeedback         = "Stub: configure an LLM API key for flow review."
	DeepDiveStubFeedback     = "Stub: configure an LLM API key for deep-dive review."
	NoDeepDiveFeedback       = "No specific feedback for this topic."
	DetailedStubFeedback     = "Stub: configure an LLM API key for detailed diagram review."
	MaxSuggestedMissingTopic = 3
)

// Flow reviews an end-to-end flow summary against the diagram's components.
func (r *Reviewer) Flow(ctx context.Context, topic, flow string, components []string) types.FlowResponse {
	flow = strings.TrimSpace(flow)
	if flow == "" {
		return types.FlowResponse{Correct: false, Feedback: EmptyFlowFeedback}
	}
	if r.client == nil {
		return types.FlowResponse{Correct: false, Feedback: FlowStubFeedback}
	}

	obj, err := r.ask(ctx, "flow", map[string]string{
		"Topic":      topic,
		"Flow":       flow,
		"Components": prompts.Bullets(components, "(no diagram)"),
	})
	if err != nil {
		r.logFallback("flow", err)
		return types.FlowResponse{Correct: false, Feedback: FlowStubFeedback}
	}

	correct, _ := obj["correct"].(bool)
	return types.FlowResponse{
		Correct:      correct,
		Feedback:     llm.String(obj, "feedback"),
		Improvements: llm.String(obj, "improvements"),
	}
}

// DeepDives reviews each deep dive and suggests missing topics. Items without a topic are
// skipped; the result has one item per remaining input, in order.
func (r *Reviewer) DeepDives(ctx context.Context, topic string, dives []types.DeepDiveInput) types.DeepDivesResponse {
	kept := make([]types.DeepDiveInput, 0, len(dives))
	for _, dive := range dives {
		dive.Topic = strings.TrimSpace(dive.Topic)
		dive.UserSummary = strings.TrimSpace(dive.UserSummary)
		if dive.Topic != "" {
			kept = append(kept, dive)
		}
	}

	resp := types.DeepDivesResponse{
		Items:                  make([]types.DeepDiveResult, 0, len(kept)),
		SuggestedMissingTopics: []string{},
	}
	stub := func() types.DeepDivesResponse {
		for _, dive := range kept {
			resp.Items = append(resp.Items, types.DeepDiveResult{Topic: dive.Topic, Feedback: DeepDiveStubFeedback})
		}
		return resp
	}
	if r.client == nil {
		return stub()
	}

	var sb strings.Builder
	for _, dive := range kept {
		summary := dive.UserSummary
		if summary == "" {
			summary = "(no summary)"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", dive.Topic, summary)
	}
	listing := strings.TrimSuffix(sb.String(), "\n")
	if listing == "" {
		listing = "(none)"
	}

	obj, err := r.ask(ctx, "deep_dives", map[string]string{"Topic": topic, "DeepDives": listing})
	if err != nil {
		r.logFallback("deep_dives", err)
		return stub()
	}

	byTopic := make(map[string]map[string]any)
	if entries, ok := obj["items"].([]any); ok {
		for _, entry := range entries {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(llm.Stringify(item["topic"])))
			if _, exists := byTopic[key]; !exists {
				byTopic[key] = item
			}
		}
	}

	present := make(map[string]bool, len(kept))
	for _, dive := range kept {
		present[strings.ToLower(dive.Topic)] = true
		result := types.DeepDiveResult{Topic: dive.Topic, Feedback: NoDeepDiveFeedback}
		if item, ok := byTopic[strings.ToLower(dive.Topic)]; ok {
			result.SuggestedSummary = llm.String(item, "suggestedSummary", "suggested_summary")
			if feedback := llm.String(item, "feedback"); feedback != "" {
				result.Feedback = feedback
			}
		}
		resp.Items = append(resp.Items, result)
	}

	for _, suggestion := range llm.StringList(obj, 0, "suggestedMissingTopics", "suggested_missing_topics") {
		key := strings.ToLower(suggestion)
		if present[key] {
			continue
		}
		present[key] = true
		resp.SuggestedMissingTopics = append(resp.SuggestedMissingTopics, suggestion)
		if len(resp.SuggestedMissingTopics) == MaxSuggestedMissingTopic {
			break
		}
	}
	return resp
}

// Design is everything the user decided during the interview, used to review the detailed diagram.
type Design struct {
	Topic        string
	Components   []string
	Requirements types.RequirementsSummary
	APIDesign    []types.APIDesignRow
	DataModel    []string
	HighLevel    []string
	Flow         string
	DeepDives    []types.DeepDive
}

// DetailedDiagram reviews the detailed diagram against the rest of the design and suggests
// a corrected diagram in D2 syntax. SuggestedDiagramPNG is always empty.
func (r *Reviewer) DetailedDiagram(ctx context.Context, design Design) types.DetailedDiagramResponse {
	if r.client == nil {
		return types.DetailedDiagramResponse{Feedback: DetailedStubFeedback}
	}

	apis := make([]string, 0, len(design.APIDesign))
	for _, row := range design.APIDesign {
		line := strings.TrimSpace(row.API)
		if line == "" {
			continue
		}
		if req := strings.TrimSpace(row.Request); req != "" {
			line += " | request: " + req
		}
		if res := strings.TrimSpace(row.Response); res != "" {
			line += " | response: " + res
		}
		apis = append(apis, line)
	}
	dives := make([]string, 0, len(design.DeepDives))
	for _, dive := range design.DeepDives {
		if t := strings.TrimSpace(dive.Topic); t != "" {
			dives = append(dives, t+": "+strings.TrimSpace(dive.UserSummary))
		}
	}
	flow := strings.TrimSpace(design.Flow)
	if flow == "" {
		flow = "(none)"
	}

	obj, err := r.ask(ctx, "detailed_diagram", map[string]string{
		"Topic":         design.Topic,
		"Components":    prompts.Bullets(design.Components, "(empty diagram)"),
		"Functional":    prompts.Bullets(design.Requirements.Functional, "(none)"),
		"NonFunctional": prompts.Bullets(design.Requirements.NonFunctional, "(none)"),
		"APIDesign":     prompts.Bullets(apis, "(none)"),
		"DataModel":     prompts.Bullets(design.DataModel, "(none)"),
		"HighLevel":     prompts.Bullets(design.HighLevel, "(none)"),
		"Flow":          flow,
		"DeepDives":     prompts.Bullets(dives, "(none)"),
	})
	if err != nil {
		r.logFallback("detailed_diagram", err)
		return types.DetailedDiagramResponse{Feedback: DetailedStubFeedback}
	}

	return types.DetailedDiagramResponse{
		Feedback:         llm.String(obj, "feedback"),
		Improvements:     llm.String(obj, "improvements"),
		SuggestedDiagram: llm.String(obj, "suggested_diagram", "suggestedDiagram"),
	}
}
