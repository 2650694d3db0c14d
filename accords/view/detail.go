package view

import (
	"strings"

	"github.com/arthur-debert/accords/accords"
)

// Detail is the full view of one record.
type Detail struct {
	accords.Agreement
	Mobility      bool      `json:"mobility"`
	MaterialMeans []string  `json:"material_means"`
	LocateURL     string    `json:"locate_url"`
	Title         []Segment `json:"title_segments,omitempty"`
	Excerpt       []Segment `json:"excerpt_segments,omitempty"`
	Measure       []Segment `json:"measure_segments,omitempty"`
}

// Describe builds the detail view of a, highlighting term.
func Describe(a accords.Agreement, term string) Detail {
	means := a.MaterialMeans()
	if means == nil {
		means = []string{}
	}
	return Detail{
		Agreement:     a,
		Mobility:      a.IsMobility(),
		MaterialMeans: means,
		LocateURL:     LocateURL(a),
		Title:         Highlight(a.Title, term),
		Excerpt:       Highlight(a.Excerpt, term),
		Measure:       Highlight(a.Measure, term),
	}
}

// HighlightTerm is the term to emphasize for a filter: the global search
// when set, otherwise the measure search.
func HighlightTerm(global, measure string) string {
	if t := strings.TrimSpace(global); t != "" {
		return t
	}
	return strings.TrimSpace(measure)
}
