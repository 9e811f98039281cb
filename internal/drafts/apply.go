package drafts

import (
	"fmt"

	"github.com/jonathan/design-coach/internal/diagram"
	"github.com/jonathan/design-coach/internal/types"
)

// Canvas selects which of the draft's diagrams an editor event belongs to.
type Canvas string

// Diagram canvases.
const (
	CanvasHighLevel Canvas = "high-level"
	CanvasDetailed  Canvas = "detailed"
)

// ParseCanvas parses a canvas name; an empty name means the high-level diagram.
func ParseCanvas(name string) (Canvas, error) {
	switch Canvas(name) {
	case "", CanvasHighLevel:
		return CanvasHighLevel, nil
	case CanvasDetailed:
		return CanvasDetailed, nil
	default:
		return "", fmt.Errorf("unknown canvas %q", name)
	}
}

// Apply records an editor event in the draft and reports whether the draft changed.
// Save events and XML exports replace the canvas XML; PNG exports of the high-level canvas
// replace the saved image. Init events and detailed-canvas images change nothing.
func Apply(d *types.Draft, canvas Canvas, event diagram.Event) bool {
	switch event.Kind {
	case diagram.EventSave:
		return setXML(d, canvas, event.XML)

	case diagram.EventExport:
		if event.XML != "" {
			return setXML(d, canvas, event.XML)
		}
		if event.PNG != "" && canvas == CanvasHighLevel {
			if d.DiagramPNG != nil && *d.DiagramPNG == event.PNG {
				return false
			}
			png := event.PNG
			d.DiagramPNG = &png
			return true
		}
	}
	return false
}

func setXML(d *types.Draft, canvas Canvas, xml string) bool {
	target := &d.DiagramXML
	if canvas == CanvasDetailed {
		target = &d.DetailedDiagramXML
	}
	if *target != nil && **target == xml {
		return false
	}
	*target = &xml
	return true
}
