package review

import (
	"context"
	"strings"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/prompts"
)

// Kind selects how answers are compared with the reference list.
type Kind string

const (
	// KindGeneral compares free-text answers (requirements, APIs, estimation items).
	KindGeneral Kind = "general"
	// KindDiagram compares diagram labels with expected components.
	KindDiagram Kind = "diagram"
	// KindSchema compares schema lines with expected tables and indexes.
	KindSchema Kind = "schema"
)

// Coverage splits a reference list into the items the user covered and the items they missed.
// Both lists only ever contain exact reference strings, and together hold every reference item.
type Coverage struct {
	Matched []string
	Missed  []string
}

// Coverage classifies answers against reference. apiDesign is context for KindSchema.
func (r *Reviewer) Coverage(ctx context.Context, kind Kind, reference, answers, apiDesign []string) Coverage {
	if len(reference) == 0 {
		return Coverage{Matched: []string{}, Missed: []string{}}
	}
	allMissed := Coverage{Matched: []string{}, Missed: dedupe(reference)}
	if r.client == nil {
		return allMissed
	}

	data := map[string]string{
		"Reference": prompts.Bullets(reference, ""),
		"Answers":   prompts.Bullets(answers, "(none)"),
		"APIDesign": "",
	}
	if kind == KindSchema && len(apiDesign) > 0 {
		data["APIDesign"] = "\n\nAPI design (for context):\n" + prompts.Bullets(apiDesign, "")
	}

	key := "coverage." + string(kind)
	obj, err := r.ask(ctx, key, data)
	if err != nil {
		r.logFallback(key, err)
		return allMissed
	}

	return Sanitize(reference, llm.StringList(obj, 0, "matched"), llm.StringList(obj, 0, "missed"))
}

// Sanitize reconciles a model's matched/missed answer with the reference list: items that are
// not exact reference strings are dropped, matched wins over missed, and reference items the
// model forgot are appended to missed.
func Sanitize(reference, matched, missed []string) Coverage {
	inReference := make(map[string]bool, len(reference))
	for _, item := range reference {
		inReference[item] = true
	}

	out := Coverage{Matched: []string{}, Missed: []string{}}
	seen := make(map[string]bool, len(reference))
	for _, item := range matched {
		item = strings.TrimSpace(item)
		if inReference[item] && !seen[item] {
			seen[item] = true
			out.Matched = append(out.Matched, item)
		}
	}
	for _, item := range missed {
		item = strings.TrimSpace(item)
		if inReference[item] && !seen[item] {
			seen[item] = true
			out.Missed = append(out.Missed, item)
		}
	}
	for _, item := range reference {
		if !seen[item] {
			seen[item] = true
			out.Missed = append(out.Missed, item)
		}
	}
	return out
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
