// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/design-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 7
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to exactly width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// writeList writes a bulleted list, capped at maxItemsToShow.
func writeList(sb *strings.Builder, heading, marker string, items []string) {
	fmt.Fprintf(sb, "%s (%d):\n", heading, len(items))
	if len(items) == 0 {
		sb.WriteString("  (none)\n")
		return
	}
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  %s %s\n", marker, item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}

// coverage renders a reference list and the user's coverage of it.
func coverage(sb *strings.Builder, reference, matched, missed []string) {
	writeList(sb, "Reference", "•", reference)
	writeList(sb, "Covered", "✓", matched)
	writeList(sb, "Missing", "✗", missed)
}

func lineFeedback(sb *strings.Builder, heading string, feedback []types.LineFeedback) {
	fmt.Fprintf(sb, "%s:\n", heading)
	if len(feedback) == 0 {
		sb.WriteString("  (no lines)\n")
		return
	}
	for _, fb := range feedback {
		mark := "✓"
		if !fb.Reasonable {
			mark = "✗"
		}
		fmt.Fprintf(sb, "  %s %s\n", mark, fb.UserLine)
		fmt.Fprintf(sb, "      %s\n", fb.Comment)
	}
}

func (p *Printer) done(title string, sb *strings.Builder) {
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRequirements outputs merged requirements and the user's coverage of them.
func (p *Printer) PrintRequirements(resp *types.RequirementsResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString("FUNCTIONAL\n")
	coverage(&sb, resp.Functional, resp.FunctionalMatched, resp.FunctionalMissed)
	sb.WriteString("\nNON-FUNCTIONAL\n")
	coverage(&sb, resp.NonFunctional, resp.NonFunctionalMatched, resp.NonFunctionalMissed)
	p.done("REQUIREMENTS REVIEW", &sb)
}

// PrintAPIs outputs the API design review.
func (p *Printer) PrintAPIs(resp *types.APIsResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	coverage(&sb, resp.APIs, resp.Matched, resp.Missed)
	p.done("API DESIGN REVIEW", &sb)
}

// PrintDiagram outputs the high-level diagram review and the suggested Mermaid source.
func (p *Printer) PrintDiagram(resp *types.DiagramResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	coverage(&sb, resp.Elements, resp.Matched, resp.Missed)
	if resp.SuggestedDiagram != "" {
		sb.WriteString("\nSuggested diagram:\n")
		sb.WriteString(resp.SuggestedDiagram)
	}
	p.done("HIGH-LEVEL DIAGRAM REVIEW", &sb)
}

// PrintEstimation outputs the back-of-envelope review.
func (p *Printer) PrintEstimation(resp *types.EstimationResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	coverage(&sb, resp.Elements, resp.Matched, resp.Missed)
	sb.WriteString("\n")
	lineFeedback(&sb, "Calculations", resp.CalculationFeedback)
	p.done("ESTIMATION REVIEW", &sb)
}

// PrintDataModel outputs the schema review.
func (p *Printer) PrintDataModel(resp *types.DataModelResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	coverage(&sb, resp.Elements, resp.Matched, resp.Missed)
	sb.WriteString("\n")
	lineFeedback(&sb, "Schema lines", resp.Feedback)
	if len(resp.SuggestedMissingTables) > 0 {
		sb.WriteString("\n")
		writeList(&sb, "Consider adding", "+", resp.SuggestedMissingTables)
	}
	p.done("DATA MODEL REVIEW", &sb)
}

// PrintFlow outputs the end-to-end flow review.
func (p *Printer) PrintFlow(resp *types.FlowResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	verdict := "needs work"
	if resp.Correct {
		verdict = "correct"
	}
	fmt.Fprintf(&sb, "Verdict: %s\n\n%s\n", verdict, resp.Feedback)
	if resp.Improvements != "" {
		fmt.Fprintf(&sb, "\nImprovements:\n%s\n", resp.Improvements)
	}
	p.done("END-TO-END FLOW REVIEW", &sb)
}

// PrintDeepDives outputs each deep-dive review and the suggested extra topics.
func (p *Printer) PrintDeepDives(resp *types.DeepDivesResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	for i, item := range resp.Items {
		fmt.Fprintf(&sb, "#%d  %s\n", i+1, item.Topic)
		fmt.Fprintf(&sb, "    %s\n", item.Feedback)
		if item.SuggestedSummary != "" {
			fmt.Fprintf(&sb, "    Suggested: %s\n", item.SuggestedSummary)
		}
	}
	if len(resp.Items) == 0 {
		sb.WriteString("No deep dives submitted.\n")
	}
	sb.WriteString("\n")
	writeList(&sb, "Also worth covering", "+", resp.SuggestedMissingTopics)
	p.done("DEEP DIVES REVIEW", &sb)
}

// PrintDetailedDiagram outputs the detailed diagram review.
func (p *Printer) PrintDetailedDiagram(resp *types.DetailedDiagramResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(resp.Feedback + "\n")
	if resp.Improvements != "" {
		fmt.Fprintf(&sb, "\nImprovements:\n%s\n", resp.Improvements)
	}
	if resp.SuggestedDiagram != "" {
		fmt.Fprintf(&sb, "\nSuggested diagram (D2):\n%s\n", resp.SuggestedDiagram)
	}
	p.done("DETAILED DIAGRAM REVIEW", &sb)
}

// PrintMerge outputs a matcher result and the rule that produced it.
func (p *Printer) PrintMerge(resp *types.MergeResponse) {
	if resp == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rule: %s\n\n", resp.Source)
	writeList(&sb, "Merged", "•", resp.Result)
	p.done("MERGED CANDIDATES", &sb)
}

// Print dispatches on the stage result type. It reports false for unknown types.
func (p *Printer) Print(result any) bool {
	switch r := result.(type) {
	case *types.RequirementsResponse:
		p.PrintRequirements(r)
	case *types.APIsResponse:
		p.PrintAPIs(r)
	case *types.DiagramResponse:
		p.PrintDiagram(r)
	case *types.EstimationResponse:
		p.PrintEstimation(r)
	case *types.DataModelResponse:
		p.PrintDataModel(r)
	case *types.FlowResponse:
		p.PrintFlow(r)
	case *types.DeepDivesResponse:
		p.PrintDeepDives(r)
	case *types.DetailedDiagramResponse:
		p.PrintDetailedDiagram(r)
	case *types.MergeResponse:
		p.PrintMerge(r)
	default:
		return false
	}
	return true
}
