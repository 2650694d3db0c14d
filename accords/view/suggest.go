package view

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/arthur-debert/accords/accords/filter"
)

// LocationSuggestionLimit caps location suggestions.
const LocationSuggestionLimit = 50

// SectorSuggestions returns the sectors containing input, case-folded,
// minus those already selected. An empty input matches every sector.
func SectorSuggestions(sectors []string, input string, selected []string) []string {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(input))

	taken := make(map[string]bool, len(selected))
	for _, s := range selected {
		taken[s] = true
	}

	out := []string{}
	for _, s := range sectors {
		if taken[s] || !strings.Contains(fold.String(s), needle) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LocationSuggestions returns up to 50 options whose name contains input,
// case-folded. Names already selected at any granularity are left out. An
// empty input yields nothing.
func LocationSuggestions(options []filter.Location, input string, selected []filter.Location) []filter.Location {
	out := []filter.Location{}
	input = strings.TrimSpace(input)
	if input == "" {
		return out
	}

	fold := cases.Fold()
	needle := fold.String(input)

	taken := make(map[string]bool, len(selected))
	for _, l := range selected {
		taken[l.Name] = true
	}

	for _, o := range options {
		if taken[o.Name] || !strings.Contains(fold.String(o.Name), needle) {
			continue
		}
		out = append(out, o)
		if len(out) == LocationSuggestionLimit {
			break
		}
	}
	return out
}
