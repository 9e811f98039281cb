// Package topics holds the catalog of system design topics and converts between topic
// titles and URL slugs.
package topics

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Topic is a catalog entry.
type Topic struct {
	Slug    string   `yaml:"-" json:"slug"`
	Title   string   `yaml:"title" json:"title"`
	Summary string   `yaml:"summary" json:"summary"`
	Tags    []string `yaml:"tags" json:"tags"`
}

type catalogFile struct {
	Topics []Topic `yaml:"topics"`
}

var (
	loadOnce sync.Once
	catalog  []Topic
	bySlug   map[string]Topic
	loadErr  error
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Parse decodes a YAML topic catalog and fills in the slugs.
func Parse(data []byte) ([]Topic, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse topic catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Topics))
	for i := range file.Topics {
		t := &file.Topics[i]
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("topic %d has no title", i)
		}
		t.Slug = Slug(t.Title)
		if seen[t.Slug] {
			return nil, fmt.Errorf("duplicate topic %q", t.Slug)
		}
		seen[t.Slug] = true
		if t.Tags == nil {
			t.Tags = []string{}
		}
	}
	return file.Topics, nil
}

func load() {
	catalog, loadErr = Parse(catalogYAML)
	bySlug = make(map[string]Topic, len(catalog))
	for _, t := range catalog {
		bySlug[t.Slug] = t
	}
}

// All returns the embedded catalog in its listed order.
func All() ([]Topic, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]Topic, len(catalog))
	copy(out, catalog)
	return out, nil
}

// Lookup resolves a catalog entry by slug.
func Lookup(slug string) (Topic, bool) {
	loadOnce.Do(load)
	t, ok := bySlug[slug]
	return t, ok
}

// Slug lowercases a title and joins its words with hyphens: "Design a URL Shortener"
// becomes "design-a-url-shortener".
func Slug(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}

// Title turns a slug back into a display title by capitalising each hyphen-separated word.
// Catalog titles keep their own casing; use Lookup when the slug is known.
func Title(slug string) string {
	words := strings.Split(slug, "-")
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, string(runes))
	}
	return strings.Join(out, " ")
}

// ValidSlug reports whether slug is lowercase words joined by single hyphens.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// Resolve returns the display title for a slug: the catalog title when known, otherwise
// the capitalised slug.
func Resolve(slug string) string {
	if t, ok := Lookup(slug); ok {
		return t.Title
	}
	return Title(slug)
}
