// Package analysis pulls entity names out of free-form analysis text, such as
// the report a model writes after looking at a book.
package analysis

import (
	"regexp"
	"strings"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

// Entities holds the names found in a piece of analysis text. A field is
// empty when the text did not name that entity.
type Entities struct {
	Author    string `json:"author,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Binder    string `json:"binder,omitempty"`
}

// Get returns the name found for t.
func (e Entities) Get(t domain.EntityType) string {
	switch t {
	case domain.EntityAuthor:
		return e.Author
	case domain.EntityPublisher:
		return e.Publisher
	case domain.EntityBinder:
		return e.Binder
	default:
		return ""
	}
}

// Empty reports whether nothing was found.
func (e Entities) Empty() bool {
	return e.Author == "" && e.Publisher == "" && e.Binder == ""
}

// labelLine matches "Label: value" with optional list markers and markdown
// emphasis around the label, e.g. "- **Binder:** Riviere & Son".
var labelLine = regexp.MustCompile(`(?i)^\s*(?:[-*+\x{2022}]|\d+[.)])?\s*[*_]{0,2}\s*` +
	`(authors?|written by|publisher|published by|imprint|binder|bindery|bound by|binding by)` +
	`\s*[*_]{0,2}\s*:\s*(.*)$`)

//nolint:gochecknoglobals // Static lookup table
var labels = map[string]domain.EntityType{
	"author":       domain.EntityAuthor,
	"authors":      domain.EntityAuthor,
	"written by":   domain.EntityAuthor,
	"publisher":    domain.EntityPublisher,
	"published by": domain.EntityPublisher,
	"imprint":      domain.EntityPublisher,
	"binder":       domain.EntityBinder,
	"bindery":      domain.EntityBinder,
	"bound by":     domain.EntityBinder,
	"binding by":   domain.EntityBinder,
}

//nolint:gochecknoglobals // Static lookup table
var placeholders = map[string]bool{
	"unknown":      true,
	"n/a":          true,
	"na":           true,
	"none":         true,
	"not stated":   true,
	"not known":    true,
	"unidentified": true,
	"unsigned":     true,
	"-":            true,
	"?":            true,
}

// Extract scans text line by line for labelled entity names. Labels are
// case-insensitive; the first usable value for each entity wins. HTML input
// is converted to markdown first.
func Extract(text string) Entities {
	var out Entities
	for line := range strings.Lines(toMarkdown(text)) {
		m := labelLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		t := labels[strings.Join(strings.Fields(strings.ToLower(m[1])), " ")]
		value := cleanValue(m[2])
		if value == "" {
			continue
		}

		switch t {
		case domain.EntityAuthor:
			if out.Author == "" {
				out.Author = value
			}
		case domain.EntityPublisher:
			if out.Publisher == "" {
				out.Publisher = value
			}
		case domain.EntityBinder:
			if out.Binder == "" {
				out.Binder = value
			}
		}
	}
	return out
}

func cleanValue(raw string) string {
	v := strings.TrimLeft(raw, " \t*_`\"'“”")
	v = strings.TrimRight(v, " \t*_`\"'“”.,;:")

	if placeholders[strings.ToLower(v)] {
		return ""
	}
	return v
}
