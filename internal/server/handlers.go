package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/design-coach/internal/stages"
	"github.com/jonathan/design-coach/internal/topics"
)

// validationError converts validator failures into an ErrValidation for the first field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ErrValidation{Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := jsonFieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return &ErrValidation{Field: field, Message: "is required"}
	case "notblank":
		return &ErrValidation{Field: field, Message: "must not be blank"}
	default:
		return &ErrValidation{Field: field, Message: "failed " + fe.Tag() + " check"}
	}
}

// jsonFieldPath drops the struct name from a validator namespace:
// "DeepDivesRequest.deepDives[0].topic" becomes "deepDives[0].topic".
func jsonFieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// handleListTopics returns the topic catalog.
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	all, err := topics.All()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"topics": all})
}

// handleGetTopic returns one catalog entry.
func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("topic")
	topic, ok := topics.Lookup(slug)
	if !ok {
		s.writeError(w, r, &ErrUnknownTopic{Slug: slug})
		return
	}
	s.jsonResponse(w, http.StatusOK, topic)
}

// handleListStages returns the wizard stages in order.
func (s *Server) handleListStages(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"stages": stages.All()})
}

// handleGetStage returns one stage definition.
func (s *Server) handleGetStage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("stage")
	def, ok := stages.Get(name)
	if !ok {
		s.writeError(w, r, &ErrUnknownStage{Stage: name})
		return
	}
	s.jsonResponse(w, http.StatusOK, def)
}

// handleCreateSession issues an anonymous drafting session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.NewSession()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, session)
}
