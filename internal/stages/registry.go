// Package stages describes the interview wizard's stages, their order, and which saved
// draft inputs each stage builds on.
package stages

import (
	"fmt"
	"strings"

	"github.com/jonathan/design-coach/internal/types"
)

// Stage names in wizard order.
const (
	Requirements     = "requirements"
	APIDesign        = "api-design"
	HighLevelDiagram = "high-level-diagram"
	BackOfEnvelope   = "back-of-envelope"
	DataModel        = "data-model"
	EndToEndFlow     = "end-to-end-flow"
	DeepDives        = "deep-dives"
	DetailedDiagram  = "detailed-diagram"
)

// Input names a draft field a stage reads. Values match the draft's JSON field names.
type Input string

// Draft inputs.
const (
	InputRequirements    Input = "requirements"
	InputAPIDesign       Input = "apiDesign"
	InputDiagramXML      Input = "diagramXml"
	InputEstimation      Input = "estimation"
	InputDataModel       Input = "dataModel"
	InputEndToEndFlow    Input = "endToEndFlow"
	InputDeepDives       Input = "deepDives"
	InputDetailedDiagram Input = "detailedDiagramXml"
)

// Definition defines metadata for a wizard stage.
type Definition struct {
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Endpoint string  `json:"endpoint"`
	Saves    Input   `json:"saves"`
	Requires []Input `json:"requires"`
	Uses     []Input `json:"uses"`
}

// order is the wizard order.
var order = []string{
	Requirements,
	APIDesign,
	HighLevelDiagram,
	BackOfEnvelope,
	DataModel,
	EndToEndFlow,
	DeepDives,
	DetailedDiagram,
}

// Registry holds all stage definitions.
var Registry = map[string]Definition{
	Requirements: {
		Name:     Requirements,
		Title:    "Requirements",
		Endpoint: "/validate",
		Saves:    InputRequirements,
		Requires: []Input{},
		Uses:     []Input{},
	},
	APIDesign: {
		Name:     APIDesign,
		Title:    "API Design",
		Endpoint: "/validate-apis",
		Saves:    InputAPIDesign,
		Requires: []Input{},
		Uses:     []Input{InputRequirements},
	},
	HighLevelDiagram: {
		Name:     HighLevelDiagram,
		Title:    "High-Level Diagram",
		Endpoint: "/validate-diagram",
		Saves:    InputDiagramXML,
		Requires: []Input{},
		Uses:     []Input{InputRequirements, InputAPIDesign},
	},
	BackOfEnvelope: {
		Name:     BackOfEnvelope,
		Title:    "Back-of-the-Envelope Estimation",
		Endpoint: "/validate-estimation",
		Saves:    InputEstimation,
		Requires: []Input{},
		Uses:     []Input{InputRequirements},
	},
	DataModel: {
		Name:     DataModel,
		Title:    "Data Model",
		Endpoint: "/validate-data-model",
		Saves:    InputDataModel,
		Requires: []Input{},
		Uses:     []Input{InputAPIDesign},
	},
	EndToEndFlow: {
		Name:     EndToEndFlow,
		Title:    "End-to-End Flow",
		Endpoint: "/validate-flow",
		Saves:    InputEndToEndFlow,
		Requires: []Input{},
		Uses:     []Input{InputDiagramXML},
	},
	DeepDives: {
		Name:     DeepDives,
		Title:    "Deep Dives",
		Endpoint: "/validate-deep-dives",
		Saves:    InputDeepDives,
		Requires: []Input{},
		Uses:     []Input{InputDiagramXML, InputEndToEndFlow},
	},
	DetailedDiagram: {
		Name:     DetailedDiagram,
		Title:    "Detailed Diagram",
		Endpoint: "/validate-detailed-diagram",
		Saves:    InputDetailedDiagram,
		Requires: []Input{InputRequirements, InputAPIDesign, InputDataModel, InputDiagramXML, InputEndToEndFlow},
		Uses:     []Input{InputDeepDives},
	},
}

// DependencyError reports the draft inputs a stage still needs.
type DependencyError struct {
	Stage   string
	Missing []Input
}

func (e *DependencyError) Error() string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m)
	}
	return fmt.Sprintf("stage %s is missing inputs: %s", e.Stage, strings.Join(names, ", "))
}

// Order returns the stage names in wizard order.
func Order() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// All returns every definition in wizard order.
func All() []Definition {
	out := make([]Definition, 0, len(order))
	for _, name := range order {
		out = append(out, Registry[name])
	}
	return out
}

// Get returns the definition of a stage.
func Get(name string) (Definition, bool) {
	def, ok := Registry[name]
	return def, ok
}

// Next returns the stage after name, or "" for the last stage.
func Next(name string) string {
	for i, n := range order {
		if n == name && i+1 < len(order) {
			return order[i+1]
		}
	}
	return ""
}

// Previous returns the stage before name, or "" for the first stage.
func Previous(name string) string {
	for i, n := range order {
		if n == name && i > 0 {
			return order[i-1]
		}
	}
	return ""
}

// Filled reports whether the draft has a value for input.
func Filled(input Input, d *types.Draft) bool {
	if d == nil {
		return false
	}
	switch input {
	case InputRequirements:
		return d.Requirements != nil &&
			(len(types.TrimLines(d.Requirements.Functional)) > 0 || len(types.TrimLines(d.Requirements.NonFunctional)) > 0)
	case InputAPIDesign:
		for _, row := range d.APIDesign {
			if strings.TrimSpace(row.API) != "" {
				return true
			}
		}
		return false
	case InputDiagramXML:
		return notBlank(d.DiagramXML)
	case InputEstimation:
		return len(types.TrimLines(d.Estimation)) > 0
	case InputDataModel:
		return len(types.TrimLines(d.DataModel)) > 0
	case InputEndToEndFlow:
		return notBlank(d.EndToEndFlow)
	case InputDeepDives:
		for _, dive := range d.DeepDives {
			if strings.TrimSpace(dive.Topic) != "" {
				return true
			}
		}
		return false
	case InputDetailedDiagram:
		return notBlank(d.DetailedDiagramXML)
	default:
		return false
	}
}

// Missing lists the required inputs of a stage the draft has not filled yet.
func Missing(name string, d *types.Draft) ([]Input, error) {
	def, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", name)
	}

	missing := []Input{}
	for _, input := range def.Requires {
		if !Filled(input, d) {
			missing = append(missing, input)
		}
	}
	return missing, nil
}

// ValidateDependencies returns a *DependencyError when the draft lacks a stage's required inputs.
func ValidateDependencies(name string, d *types.Draft) error {
	missing, err := Missing(name, d)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: name, Missing: missing}
	}
	return nil
}

// Progress is a stage's state for one draft.
type Progress struct {
	Stage    string  `json:"stage"`
	Title    string  `json:"title"`
	Done     bool    `json:"done"`
	Missing  []Input `json:"missing"`
	Previous string  `json:"previous,omitempty"`
	Next     string  `json:"next,omitempty"`
}

// ProgressOf reports every stage's state for a draft, in wizard order.
func ProgressOf(d *types.Draft) []Progress {
	out := make([]Progress, 0, len(order))
	for _, def := range All() {
		missing, _ := Missing(def.Name, d)
		out = append(out, Progress{
			Stage:    def.Name,
			Title:    def.Title,
			Done:     Filled(def.Saves, d),
			Missing:  missing,
			Previous: Previous(def.Name),
			Next:     Next(def.Name),
		})
	}
	return out
}

func notBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
