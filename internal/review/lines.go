package review

import (
	"context"
	"strings"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/prompts"
	"github.com/jonathan/design-coach/internal/types"
)

// Comments used when the model gives no usable feedback for a line.
const (
	NoFeedbackComment         = "No specific feedback for this line."
	EmptyComment              = "No comment."
	CalculationsStubComment   = "Stub: configure an LLM API key for calculation review."
	SchemaStubComment         = "Stub: configure an LLM API key for data model review."
	MaxSuggestedMissingTables = 5
)

// SchemaReview is the per-line review of a data model plus the tables it lacks.
type SchemaReview struct {
	Feedback               []types.LineFeedback
	SuggestedMissingTables []string
}

// Calculations reviews each estimation line for plausible numbers and correct derivations.
// The result has one entry per non-blank line, in input order.
func (r *Reviewer) Calculations(ctx context.Context, topic string, lines []string) []types.LineFeedback {
	lines = types.TrimLines(lines)
	if len(lines) == 0 {
		return []types.LineFeedback{}
	}
	if r.client == nil {
		return stubFeedback(lines, CalculationsStubComment)
	}

	obj, err := r.ask(ctx, "calculations", map[string]string{
		"Topic": topic,
		"Lines": strings.Join(lines, "\n"),
	})
	if err != nil {
		r.logFallback("calculations", err)
		return stubFeedback(lines, CalculationsStubComment)
	}

	feedback, ok := alignFeedback(lines, obj["feedback"])
	if !ok {
		return stubFeedback(lines, CalculationsStubComment)
	}
	return feedback
}

// Schema reviews each data model line (keys, missing fields, API fit) and suggests missing
// tables. apiDesign may be empty.
func (r *Reviewer) Schema(ctx context.Context, topic string, lines, apiDesign []string) SchemaReview {
	lines = types.TrimLines(lines)
	if len(lines) == 0 {
		return SchemaReview{Feedback: []types.LineFeedback{}, SuggestedMissingTables: []string{}}
	}
	fallback := SchemaReview{
		Feedback:               stubFeedback(lines, SchemaStubComment),
		SuggestedMissingTables: []string{},
	}
	if r.client == nil {
		return fallback
	}

	data := map[string]string{
		"Topic":     topic,
		"Lines":     strings.Join(lines, "\n"),
		"APIDesign": "",
	}
	if len(apiDesign) > 0 {
		data["APIDesign"] = "\n\nAPI design (validate the schema against these):\n" + prompts.Bullets(apiDesign, "")
	}

	obj, err := r.ask(ctx, "schema", data)
	if err != nil {
		r.logFallback("schema", err)
		return fallback
	}

	feedback, ok := alignFeedback(lines, obj["feedback"])
	if !ok {
		return fallback
	}
	return SchemaReview{
		Feedback: feedback,
		SuggestedMissingTables: llm.StringList(obj, MaxSuggestedMissingTables,
			"suggestedMissingTables", "suggested_missing_tables"),
	}
}

// alignFeedback maps the model's feedback entries back onto the user's lines by exact
// (trimmed) text. It reports false when raw is not a list.
func alignFeedback(lines []string, raw any) ([]types.LineFeedback, bool) {
	if raw == nil {
		raw = []any{}
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	byLine := make(map[string]map[string]any, len(entries))
	for _, entry := range entries {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		line := strings.TrimSpace(llm.Stringify(item["userLine"]))
		if _, exists := byLine[line]; !exists {
			byLine[line] = item
		}
	}

	out := make([]types.LineFeedback, 0, len(lines))
	for _, line := range lines {
		item, found := byLine[line]
		reasonable, isBool := item["reasonable"].(bool)
		if !found || !isBool {
			out = append(out, types.LineFeedback{UserLine: line, Reasonable: true, Comment: NoFeedbackComment})
			continue
		}
		comment := strings.TrimSpace(llm.Stringify(item["comment"]))
		if comment == "" {
			comment = EmptyComment
		}
		out = append(out, types.LineFeedback{UserLine: line, Reasonable: reasonable, Comment: comment})
	}
	return out, true
}

func stubFeedback(lines []string, comment string) []types.LineFeedback {
	out := make([]types.LineFeedback, len(lines))
	for i, line := range lines {
		out[i] = types.LineFeedback{UserLine: line, Reasonable: true, Comment: comment}
	}
	return out
}
