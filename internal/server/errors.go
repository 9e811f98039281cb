// Package server provides the HTTP API of the interview wizard: stage validation, the
// candidate merge, the topic catalog, and session-scoped drafts.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/design-coach/internal/diagram"
	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/schemas"
)

// GenericErrorMessage is the body of every 500 response.
const GenericErrorMessage = "request failed"

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnknownTopic indicates a draft was requested for a slug that is not a topic
type ErrUnknownTopic struct {
	Slug string
}

func (e *ErrUnknownTopic) Error() string {
	return fmt.Sprintf("unknown topic: %s", e.Slug)
}

// ErrUnknownStage indicates an unknown wizard stage
type ErrUnknownStage struct {
	Stage string
}

func (e *ErrUnknownStage) Error() string {
	return fmt.Sprintf("unknown stage: %s", e.Stage)
}

// ErrUnauthorized indicates a missing or invalid session
type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string {
	return "unauthorized"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation    *ErrValidation
		unknownTopic  *ErrUnknownTopic
		unknownStage  *ErrUnknownStage
		unauthorized  *ErrUnauthorized
		schemaInvalid *schemas.ValidationError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unknownTopic), errors.As(err, &unknownStage), errors.Is(err, drafts.ErrInvalidKey):
		return http.StatusNotFound
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &schemaInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, diagram.ErrUnknownEvent), errors.Is(err, diagram.ErrNoDiagram):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the client-facing message for err. Server errors are reduced to
// GenericErrorMessage.
func ErrorMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return GenericErrorMessage
	}
	return err.Error()
}
