package view

import (
	"strings"

	"github.com/grafana/regexp"
)

// Segment is a run of text that either matches the highlighted term or not.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// Highlight splits text around case-insensitive occurrences of term. The
// term is matched literally. A blank term yields the whole text unmatched.
func Highlight(text, term string) []Segment {
	if text == "" {
		return nil
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return []Segment{{Text: text}}
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return []Segment{{Text: text}}
	}

	var out []Segment
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			out = append(out, Segment{Text: text[last:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Match: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}
