// Package diagram reads draw.io (diagrams.net) documents and speaks the embedded editor's
// postMessage protocol.
package diagram

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MinLabelLength is the shortest label kept; single characters are usually arrow decorations.
const MinLabelLength = 2

// ExtractLabels returns the text labels of every mxCell in a draw.io document, in document
// order, de-duplicated case-insensitively (the first spelling wins). Empty or unparseable
// XML yields an empty list.
func ExtractLabels(doc string) []string {
	labels := []string{}
	if strings.TrimSpace(doc) == "" {
		return labels
	}

	seen := make(map[string]bool)
	decoder := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return []string{}
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "mxCell" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local != "value" {
				continue
			}
			label := StripHTML(attr.Value)
			if len([]rune(label)) < MinLabelLength {
				continue
			}
			key := strings.ToLower(label)
			if !seen[key] {
				seen[key] = true
				labels = append(labels, label)
			}
		}
	}
	return labels
}

// StripHTML turns a rich-text label into plain text: tags become spaces, entities are
// decoded and whitespace is collapsed.
func StripHTML(value string) string {
	if !strings.ContainsAny(value, "<&") {
		return collapse(value)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return collapse(value)
	}

	doc.Find("script, style").Remove()
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		s.BeforeNodes(&html.Node{Type: html.TextNode, Data: " "})
		s.AfterNodes(&html.Node{Type: html.TextNode, Data: " "})
	})
	return collapse(doc.Find("body").Text())
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
