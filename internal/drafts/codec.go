package drafts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/design-coach/internal/schemas"
	"github.com/jonathan/design-coach/internal/types"
)

// Prepare returns a normalized copy of d stamped with savedAt. d itself is not modified.
func Prepare(d *types.Draft, savedAt time.Time) *types.Draft {
	if d == nil {
		d = types.NewDraft()
	}
	out := *d
	if d.Requirements != nil {
		reqs := *d.Requirements
		out.Requirements = &reqs
	}
	savedAt = savedAt.UTC().Truncate(time.Millisecond)
	out.UpdatedAt = &savedAt
	out.Normalize()
	return &out
}

// Encode serializes a draft and validates it against the draft schema.
func Encode(d *types.Draft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := schemas.ValidateDraft(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode reads a stored draft, tolerating older and partially corrupt payloads:
//   - apiDesign given as a list of strings becomes rows with empty request/response
//   - schemaFeedback entries that are not {userLine, reasonable, comment} are dropped
//   - an empty schemaFeedback list becomes null
//   - fields that cannot be decoded keep their empty value
//
// A payload that is not a JSON object yields an empty draft.
func Decode(data []byte) *types.Draft {
	d := types.NewDraft()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return d
	}

	decodeField(fields, "requirements", &d.Requirements)
	d.APIDesign = decodeAPIDesign(fields["apiDesign"])
	decodeField(fields, "diagramXml", &d.DiagramXML)
	decodeField(fields, "diagramPng", &d.DiagramPNG)
	decodeField(fields, "suggestedDiagramMermaid", &d.SuggestedDiagramMermaid)
	decodeField(fields, "endToEndFlow", &d.EndToEndFlow)
	decodeField(fields, "flowFeedback", &d.FlowFeedback)
	decodeField(fields, "estimation", &d.Estimation)
	decodeField(fields, "dataModel", &d.DataModel)
	d.SchemaFeedback = decodeSchemaFeedback(fields["schemaFeedback"])
	decodeField(fields, "deepDives", &d.DeepDives)
	decodeField(fields, "detailedDiagramXml", &d.DetailedDiagramXML)
	decodeField(fields, "updatedAt", &d.UpdatedAt)

	d.Normalize()
	return d
}

// decodeField unmarshals fields[name] into dst, leaving dst untouched on failure.
func decodeField[T any](fields map[string]json.RawMessage, name string, dst *T) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

func decodeAPIDesign(raw json.RawMessage) []types.APIDesignRow {
	if len(raw) == 0 {
		return []types.APIDesignRow{}
	}

	var rows []types.APIDesignRow
	if err := json.Unmarshal(raw, &rows); err == nil {
		return types.NonNil(rows)
	}

	var legacy []string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		rows = make([]types.APIDesignRow, 0, len(legacy))
		for _, api := range legacy {
			rows = append(rows, types.APIDesignRow{API: api})
		}
		return rows
	}

	return []types.APIDesignRow{}
}

func decodeSchemaFeedback(raw json.RawMessage) []types.LineFeedback {
	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var out []types.LineFeedback
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		line, okLine := entry["userLine"].(string)
		reasonable, okReasonable := entry["reasonable"].(bool)
		comment, okComment := entry["comment"].(string)
		if !okLine || !okReasonable || !okComment {
			continue
		}
		out = append(out, types.LineFeedback{UserLine: line, Reasonable: reasonable, Comment: comment})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
