package diagram

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EditorOrigin is the only origin editor messages are accepted from.
const EditorOrigin = "https://embed.diagrams.net"

// Action is a command sent to the editor.
type Action string

// Actions understood by the editor.
const (
	ActionLoad   Action = "load"
	ActionExport Action = "export"
)

// Format is an export format.
type Format string

// Export formats.
const (
	FormatPNG    Format = "png"
	FormatXMLPNG Format = "xmlpng"
	FormatXML    Format = "xml"
	FormatXMLSVG Format = "xmlsvg"
)

// IsImage reports whether the format carries a PNG image.
func (f Format) IsImage() bool {
	return f == FormatPNG || f == FormatXMLPNG
}

// IsXML reports whether the format carries the diagram XML.
func (f Format) IsXML() bool {
	return f == FormatXML || f == FormatXMLSVG
}

// Message is a command for the editor, serialized as the JSON the editor expects.
type Message struct {
	Action Action `json:"action"`
	XML    string `json:"xml,omitempty"`
	Format Format `json:"format,omitempty"`
}

// LoadMessage asks the editor to display xml. The xml field is always present, even when empty.
func LoadMessage(xml string) []byte {
	data, _ := json.Marshal(struct {
		Action Action `json:"action"`
		XML    string `json:"xml"`
	}{ActionLoad, xml})
	return data
}

// ExportMessage asks the editor to export the current diagram.
func ExportMessage(format Format) []byte {
	data, _ := json.Marshal(Message{Action: ActionExport, Format: format})
	return data
}

// EventKind is the kind of a message coming back from the editor.
type EventKind string

// Editor events.
const (
	EventInit   EventKind = "init"
	EventExport EventKind = "export"
	EventSave   EventKind = "save"
)

// Event is a validated editor message. For exports exactly one of XML and PNG is set;
// PNG is always a data URL.
type Event struct {
	Kind   EventKind `json:"event"`
	Format Format    `json:"format,omitempty"`
	XML    string    `json:"xml,omitempty"`
	PNG    string    `json:"png,omitempty"`
}

// Errors returned by ParseEvent.
var (
	ErrForeignOrigin = errors.New("message from foreign origin")
	ErrUnknownEvent  = errors.New("unknown editor event")
	ErrNoDiagram     = errors.New("export carries no diagram")
)

type rawEvent struct {
	Event  EventKind `json:"event"`
	Format Format    `json:"format"`
	XML    *string   `json:"xml"`
	Data   *string   `json:"data"`
}

// ParseEvent validates a message received from origin. Messages from any origin other than
// EditorOrigin are rejected with ErrForeignOrigin.
func ParseEvent(origin string, raw []byte) (Event, error) {
	if origin != EditorOrigin {
		return Event{}, fmt.Errorf("%w: %q", ErrForeignOrigin, origin)
	}

	var msg rawEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, fmt.Errorf("failed to decode editor message: %w", err)
	}

	switch msg.Event {
	case EventInit:
		return Event{Kind: EventInit}, nil

	case EventSave:
		if msg.XML == nil {
			return Event{}, fmt.Errorf("%w: save without xml", ErrNoDiagram)
		}
		return Event{Kind: EventSave, XML: *msg.XML}, nil

	case EventExport:
		return parseExport(msg)

	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
}

func parseExport(msg rawEvent) (Event, error) {
	event := Event{Kind: EventExport, Format: msg.Format}

	switch {
	case msg.Format.IsImage():
		if msg.Data == nil || *msg.Data == "" {
			return Event{}, fmt.Errorf("%w: %s export without data", ErrNoDiagram, msg.Format)
		}
		event.PNG = PNGDataURL(*msg.Data)
		return event, nil

	case msg.Format.IsXML():
		if msg.XML != nil && *msg.XML != "" {
			event.XML = *msg.XML
			return event, nil
		}
		if msg.Data != nil {
			if xml, ok := DecodeDataURL(*msg.Data); ok {
				event.XML = xml
				return event, nil
			}
		}
		return Event{}, fmt.Errorf("%w: %s export", ErrNoDiagram, msg.Format)

	default:
		return Event{}, fmt.Errorf("%w: export format %q", ErrUnknownEvent, msg.Format)
	}
}

// PNGDataURL prefixes bare base64 image data with a PNG data URL header.
func PNGDataURL(data string) string {
	if strings.HasPrefix(data, "data:image") {
		return data
	}
	return "data:image/png;base64," + data
}

// DecodeDataURL extracts a draw.io document from a base64 data URL. It reports false when the
// payload is not base64 or does not look like a draw.io document.
func DecodeDataURL(data string) (string, bool) {
	if !strings.HasPrefix(data, "data:") {
		return "", false
	}
	_, payload, ok := strings.Cut(data, ",")
	if !ok || payload == "" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	xml := string(decoded)
	if !strings.Contains(xml, "mxfile") && !strings.Contains(xml, "mxCell") {
		return "", false
	}
	return xml, true
}
