package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FlowFeedback is a saved flow review.
type FlowFeedback struct {
	Correct      bool   `json:"correct"`
	Feedback     string `json:"feedback"`
	Improvements string `json:"improvements"`
}

// Draft is the in-progress answer sheet for one topic. Pointer fields are null until the
// corresponding stage has been saved.
type Draft struct {
	Requirements            *RequirementsSummary `json:"requirements"`
	APIDesign               []APIDesignRow       `json:"apiDesign"`
	DiagramXML              *string              `json:"diagramXml"`
	DiagramPNG              *string              `json:"diagramPng"`
	SuggestedDiagramMermaid *string              `json:"suggestedDiagramMermaid"`
	EndToEndFlow            *string              `json:"endToEndFlow"`
	FlowFeedback            *FlowFeedback        `json:"flowFeedback"`
	Estimation              []string             `json:"estimation"`
	DataModel               []string             `json:"dataModel"`
	SchemaFeedback          []LineFeedback       `json:"schemaFeedback"`
	DeepDives               []DeepDive           `json:"deepDives"`
	DetailedDiagramXML      *string              `json:"detailedDiagramXml"`
	UpdatedAt               *time.Time           `json:"updatedAt,omitempty"`
}

// NewDraft returns an empty draft with every list initialised.
func NewDraft() *Draft {
	d := &Draft{}
	d.Normalize()
	return d
}

// Normalize replaces nil lists with empty ones and an empty schema feedback list with null,
// so every draft serializes to the same shape.
func (d *Draft) Normalize() {
	if d.APIDesign == nil {
		d.APIDesign = []APIDesignRow{}
	}
	if d.Estimation == nil {
		d.Estimation = []string{}
	}
	if d.DataModel == nil {
		d.DataModel = []string{}
	}
	if d.DeepDives == nil {
		d.DeepDives = []DeepDive{}
	}
	if len(d.SchemaFeedback) == 0 {
		d.SchemaFeedback = nil
	}
	if d.Requirements != nil {
		d.Requirements.Functional = NonNil(d.Requirements.Functional)
		d.Requirements.NonFunctional = NonNil(d.Requirements.NonFunctional)
	}
}

// IsEmpty reports whether nothing has been saved in the draft yet.
func (d *Draft) IsEmpty() bool {
	return d.Requirements == nil &&
		len(d.APIDesign) == 0 &&
		d.DiagramXML == nil &&
		d.DiagramPNG == nil &&
		d.SuggestedDiagramMermaid == nil &&
		d.EndToEndFlow == nil &&
		d.FlowFeedback == nil &&
		len(d.Estimation) == 0 &&
		len(d.DataModel) == 0 &&
		len(d.SchemaFeedback) == 0 &&
		len(d.DeepDives) == 0 &&
		d.DetailedDiagramXML == nil
}

// NonNil returns list, or an empty slice when list is nil.
func NonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

// TrimLines trims every line and drops the blank ones.
func TrimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
