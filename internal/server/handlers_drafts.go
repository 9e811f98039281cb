package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/diagram"
	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/server/middleware"
	"github.com/jonathan/design-coach/internal/stages"
	"github.com/jonathan/design-coach/internal/topics"
	"github.com/jonathan/design-coach/internal/types"
)

// DraftResponse is a saved draft with its topic.
type DraftResponse struct {
	Topic string       `json:"topic"`
	Title string       `json:"title"`
	Draft *types.Draft `json:"draft"`
}

// EditorEventRequest carries one message the browser received from the diagram editor.
type EditorEventRequest struct {
	Origin  string          `json:"origin"`
	Canvas  string          `json:"canvas"`
	Message json.RawMessage `json:"message"`
}

// EditorEventResponse reports what an editor event did to the draft.
type EditorEventResponse struct {
	Ignored bool         `json:"ignored"`
	Changed bool         `json:"changed"`
	Event   string       `json:"event,omitempty"`
	Draft   *types.Draft `json:"draft,omitempty"`
}

// draftKey builds the store key from the session and the {topic} path value.
func (s *Server) draftKey(r *http.Request) (drafts.Key, error) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		return drafts.Key{}, &ErrUnauthorized{}
	}
	slug := r.PathValue("topic")
	if !topics.ValidSlug(slug) {
		return drafts.Key{}, &ErrUnknownTopic{Slug: slug}
	}
	return drafts.Key{Owner: sessionID.String(), Topic: slug}, nil
}

func (s *Server) draftResponse(key drafts.Key, d *types.Draft) DraftResponse {
	return DraftResponse{Topic: key.Topic, Title: topics.Resolve(key.Topic), Draft: d}
}

// handleGetDraft returns the session's draft for a topic; missing drafts are empty.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	key, err := s.draftKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.drafts.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.draftResponse(key, d))
}

// handleSaveDraft replaces the session's draft for a topic.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	key, err := s.draftKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var d types.Draft
	if err := s.decodeJSON(w, r, &d); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.drafts.Save(r.Context(), key, &d); err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.drafts.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.draftResponse(key, saved))
}

// handleClearDraft deletes the session's draft for a topic.
func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	key, err := s.draftKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.drafts.Clear(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDraftStages reports each stage's progress for the draft.
func (s *Server) handleDraftStages(w http.ResponseWriter, r *http.Request) {
	key, err := s.draftKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.drafts.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"topic":  key.Topic,
		"stages": stages.ProgressOf(d),
	})
}

// handleEditorEvent applies a diagram editor message to the draft. Messages from origins
// other than the editor's are ignored.
func (s *Server) handleEditorEvent(w http.ResponseWriter, r *http.Request) {
	key, err := s.draftKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req EditorEventRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	canvas, err := drafts.ParseCanvas(req.Canvas)
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "canvas", Message: err.Error()})
		return
	}

	event, err := diagram.ParseEvent(req.Origin, req.Message)
	if errors.Is(err, diagram.ErrForeignOrigin) {
		s.logger.Debug("ignoring editor message", zap.String("origin", req.Origin))
		s.jsonResponse(w, http.StatusOK, EditorEventResponse{Ignored: true})
		return
	}
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			err = &ErrValidation{Field: "message", Message: err.Error()}
		}
		s.writeError(w, r, err)
		return
	}

	d, err := s.drafts.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	changed := drafts.Apply(d, canvas, event)
	if changed {
		if err := s.drafts.Save(r.Context(), key, d); err != nil {
			s.writeError(w, r, err)
			return
		}
		if d, err = s.drafts.Load(r.Context(), key); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, EditorEventResponse{
		Changed: changed,
		Event:   string(event.Kind),
		Draft:   d,
	})
}
