package aggregate

import (
	"strings"
	"unicode/utf8"

	"github.com/grafana/regexp"

	"github.com/arthur-debert/accords/accords"
)

// MinKeywordLength is the shortest word, in letters, the keyword cloud keeps.
const MinKeywordLength = 4

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	digitsPattern = regexp.MustCompile(`^\p{N}+$`)
)

var stopWords = map[string]bool{
	"de": true, "la": true, "le": true, "les": true, "des": true, "un": true,
	"une": true, "et": true, "en": true, "à": true, "au": true, "aux": true,
	"pour": true, "par": true, "sur": true, "avec": true, "du": true,
	"que": true, "qui": true, "dans": true, "il": true, "elle": true,
	"sont": true, "est": true, "son": true, "sa": true, "ses": true,
	"ce": true, "cet": true, "cette": true, "afin": true, "relatif": true,
	"mise": true, "place": true, "cadre": true,
}

// Keywords counts word occurrences across measure and title, lower-cased,
// ignoring short words, numbers and French stop words. The first 20 are
// kept.
func Keywords(rows []accords.Agreement) []Count {
	counts := make(map[string]int)
	for _, a := range rows {
		text := strings.ToLower(a.Measure + " " + a.Title)
		for _, w := range Words(text) {
			counts[w]++
		}
	}
	return ranked(counts, KeywordLimit)
}

// Words splits lower-cased text into keyword candidates.
func Words(text string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if utf8.RuneCountInString(w) < MinKeywordLength {
			continue
		}
		if digitsPattern.MatchString(w) || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
