// Package generation produces the reference answers a user's interview answers are compared
// against. Every stage asks two independent sources and merges their lists.
package generation

import "context"

// Caps on how many items a source returns per stage.
const (
	MaxRequirements = 5
	MaxAPIs         = 5
	MaxElements     = 7
)

// Requirements is a functional and non-functional requirement list pair.
type Requirements struct {
	Functional    []string
	NonFunctional []string
}

// Diagram is a list of expected architecture components and a suggested Mermaid flowchart.
type Diagram struct {
	Elements []string
	Mermaid  string
}

// Source generates reference lists for a topic.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	Requirements(ctx context.Context, topic string) (Requirements, error)
	APIs(ctx context.Context, topic string) ([]string, error)
	DiagramElements(ctx context.Context, topic string) (Diagram, error)
	EstimationItems(ctx context.Context, topic string) ([]string, error)
	// DataModelElements may use the user's API design as context; apiDesign may be empty.
	DataModelElements(ctx context.Context, topic string, apiDesign []string) ([]string, error)
}
