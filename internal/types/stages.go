// Package types provides type definitions for the stage requests, stage results and drafts
// exchanged between the interview wizard and the validation service.
package types

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// RequirementsRequest is the body of POST /validate.
type RequirementsRequest struct {
	Topic             string   `json:"topic" validate:"required,notblank"`
	FunctionalReqs    []string `json:"functionalReqs"`
	NonFunctionalReqs []string `json:"nonFunctionalReqs"`
}

// RequirementsResponse holds the merged reference requirements and the user's coverage of them.
type RequirementsResponse struct {
	Functional           []string `json:"functional"`
	NonFunctional        []string `json:"nonFunctional"`
	FunctionalMatched    []string `json:"functionalMatched"`
	FunctionalMissed     []string `json:"functionalMissed"`
	NonFunctionalMatched []string `json:"nonFunctionalMatched"`
	NonFunctionalMissed  []string `json:"nonFunctionalMissed"`
}

// APIsRequest is the body of POST /validate-apis.
type APIsRequest struct {
	Topic string   `json:"topic" validate:"required,notblank"`
	APIs  []string `json:"apis"`
}

// APIsResponse holds the merged reference APIs and the user's coverage of them.
type APIsResponse struct {
	APIs    []string `json:"apis"`
	Matched []string `json:"matched"`
	Missed  []string `json:"missed"`
}

// DiagramRequest is the body of POST /validate-diagram.
type DiagramRequest struct {
	Topic      string `json:"topic" validate:"required,notblank"`
	DiagramXML string `json:"diagramXml"`
}

// DiagramResponse holds the expected components, their coverage by the diagram labels,
// and a suggested Mermaid flowchart.
type DiagramResponse struct {
	Elements         []string `json:"elements"`
	Matched          []string `json:"matched"`
	Missed           []string `json:"missed"`
	SuggestedDiagram string   `json:"suggestedDiagram"`
}

// EstimationRequest is the body of POST /validate-estimation.
type EstimationRequest struct {
	Topic       string   `json:"topic" validate:"required,notblank"`
	Estimations []string `json:"estimations"`
}

// LineFeedback is a per-line review of something the user wrote.
type LineFeedback struct {
	UserLine   string `json:"userLine"`
	Reasonable bool   `json:"reasonable"`
	Comment    string `json:"comment"`
}

// EstimationResponse holds the expected estimation items, coverage, and calculation review.
type EstimationResponse struct {
	Elements            []string       `json:"elements"`
	Matched             []string       `json:"matched"`
	Missed              []string       `json:"missed"`
	CalculationFeedback []LineFeedback `json:"calculationFeedback"`
}

// DataModelRequest is the body of POST /validate-data-model.
type DataModelRequest struct {
	Topic     string   `json:"topic" validate:"required,notblank"`
	DataModel []string `json:"dataModel"`
	APIDesign []string `json:"apiDesign"`
}

// DataModelResponse holds the expected schema elements, coverage, per-line review and
// tables the reviewer thinks are missing.
type DataModelResponse struct {
	Elements               []string       `json:"elements"`
	Matched                []string       `json:"matched"`
	Missed                 []string       `json:"missed"`
	Feedback               []LineFeedback `json:"feedback"`
	SuggestedMissingTables []string       `json:"suggestedMissingTables"`
}

// FlowRequest is the body of POST /validate-flow.
type FlowRequest struct {
	Topic       string `json:"topic" validate:"required,notblank"`
	FlowSummary string `json:"flowSummary"`
	DiagramXML  string `json:"diagramXml"`
}

// FlowResponse is the review of an end-to-end flow summary.
type FlowResponse struct {
	Correct      bool   `json:"correct"`
	Feedback     string `json:"feedback"`
	Improvements string `json:"improvements"`
}

// DeepDiveInput is one deep-dive topic written by the user.
type DeepDiveInput struct {
	Topic       string `json:"topic"`
	UserSummary string `json:"userSummary"`
}

// DeepDivesRequest is the body of POST /validate-deep-dives.
type DeepDivesRequest struct {
	Topic     string          `json:"topic" validate:"required,notblank"`
	DeepDives []DeepDiveInput `json:"deepDives" validate:"dive"`
}

// DeepDiveResult is the review of one deep-dive topic.
type DeepDiveResult struct {
	Topic            string `json:"topic"`
	SuggestedSummary string `json:"suggestedSummary"`
	Feedback         string `json:"feedback"`
}

// DeepDivesResponse holds one result per submitted deep dive plus topics worth adding.
type DeepDivesResponse struct {
	Items                  []DeepDiveResult `json:"items"`
	SuggestedMissingTopics []string         `json:"suggestedMissingTopics"`
}

// RequirementsSummary is the saved pair of requirement lists.
type RequirementsSummary struct {
	Functional    []string `json:"functional"`
	NonFunctional []string `json:"nonFunctional"`
}

// APIDesignRow is one row of the API design table.
type APIDesignRow struct {
	API      string `json:"api"`
	Request  string `json:"request"`
	Response string `json:"response"`
}

// DeepDive is a deep-dive topic as stored in a draft.
type DeepDive struct {
	Topic            string `json:"topic"`
	UserSummary      string `json:"userSummary"`
	SuggestedSummary string `json:"suggestedSummary,omitempty"`
}

// DetailedDiagramRequest is the body of POST /validate-detailed-diagram. It carries every
// earlier stage's answers so the detailed diagram can be checked against them.
type DetailedDiagramRequest struct {
	Topic               string               `json:"topic" validate:"required,notblank"`
	DiagramXML          string               `json:"diagramXml"`
	Requirements        *RequirementsSummary `json:"requirements,omitempty"`
	APIDesign           []APIDesignRow       `json:"apiDesign"`
	DataModel           []string             `json:"dataModel"`
	HighLevelDiagramXML string               `json:"highLevelDiagramXml"`
	EndToEndFlow        string               `json:"endToEndFlow"`
	DeepDives           []DeepDive           `json:"deepDives"`
}

// DetailedDiagramResponse is the narrative review of a detailed diagram. SuggestedDiagram is
// D2 source; SuggestedDiagramPNG is left for an external renderer to fill.
type DetailedDiagramResponse struct {
	Feedback            string `json:"feedback"`
	Improvements        string `json:"improvements"`
	SuggestedDiagram    string `json:"suggestedDiagram"`
	SuggestedDiagramPNG string `json:"suggestedDiagramPng"`
}

// MergeRequest is the body of POST /merge.
type MergeRequest struct {
	ListA []string `json:"listA"`
	ListB []string `json:"listB"`
}

// MergeResponse is the merged list and the rule that produced it ("common" or "blend").
type MergeResponse struct {
	Result []string `json:"result"`
	Source string   `json:"source"`
}

var (
	validatorOnce sync.Once
	shared        *validator.Validate
)

// NewValidator returns the shared validator with the custom tags used by the request types.
// Field errors are reported with JSON field names.
func NewValidator() *validator.Validate {
	validatorOnce.Do(func() {
		shared = validator.New(validator.WithRequiredStructEnabled())
		_ = shared.RegisterValidation("notblank", notBlank)
		shared.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return shared
}

// Validate validates the RequirementsRequest using the validator.
func (r *RequirementsRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the APIsRequest using the validator.
func (r *APIsRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the DiagramRequest using the validator.
func (r *DiagramRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the EstimationRequest using the validator.
func (r *EstimationRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the DataModelRequest using the validator.
func (r *DataModelRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the FlowRequest using the validator.
func (r *FlowRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the DeepDivesRequest using the validator.
func (r *DeepDivesRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Validate validates the DetailedDiagramRequest using the validator.
func (r *DetailedDiagramRequest) Validate() error {
	return NewValidator().Struct(r)
}
