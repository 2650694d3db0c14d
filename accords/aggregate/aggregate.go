// Package aggregate derives the dashboard statistics from a published
// result set. Every function is pure over its input rows.
package aggregate

import (
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/accords/accords"
)

// Limits on ranked lists.
const (
	MeasureLimit    = 10
	DepartmentLimit = 20
	EPCILimit       = 20
	KeywordLimit    = 20
)

// Count is one bucket of a distribution.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MobilitySplit counts flagged and unflagged records.
type MobilitySplit struct {
	Mobility int `json:"mobility"`
	Other    int `json:"other"`
}

// Stats is every derived view of one result set.
type Stats struct {
	Total       int           `json:"total"`
	TopMeasures []Count       `json:"top_measures"`
	Monthly     []Count       `json:"monthly"`
	Regions     []Count       `json:"regions"`
	Departments []Count       `json:"departments"`
	EPCIs       []Count       `json:"epcis"`
	Keywords    []Count       `json:"keywords"`
	Mobility    MobilitySplit `json:"mobility"`
}

// Compute derives every statistic from rows.
func Compute(rows []accords.Agreement) Stats {
	return Stats{
		Total:       len(rows),
		TopMeasures: TopMeasures(rows),
		Monthly:     Monthly(rows),
		Regions:     Regions(rows),
		Departments: Departments(rows),
		EPCIs:       EPCIs(rows),
		Keywords:    Keywords(rows),
		Mobility:    Mobility(rows),
	}
}

// TopMeasures ranks trimmed, non-empty measure labels, keeping the first 10.
func TopMeasures(rows []accords.Agreement) []Count {
	return ranked(tally(rows, func(a accords.Agreement) string {
		return strings.TrimSpace(a.Measure)
	}), MeasureLimit)
}

// Monthly buckets records by the YYYY-MM prefix of their reference date,
// in ascending month order. Records without a usable date are skipped.
func Monthly(rows []accords.Agreement) []Count {
	counts := tally(rows, func(a accords.Agreement) string {
		d := a.ReferenceDate()
		if len(d) < 7 {
			return ""
		}
		return d[:7]
	})
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Regions ranks every region.
func Regions(rows []accords.Agreement) []Count {
	return ranked(tally(rows, accords.Agreement.Region), 0)
}

// Departments ranks departments, keeping the first 20.
func Departments(rows []accords.Agreement) []Count {
	return ranked(tally(rows, accords.Agreement.Department), DepartmentLimit)
}

// EPCIs ranks intercommunal bodies, keeping the first 20.
func EPCIs(rows []accords.Agreement) []Count {
	return ranked(tally(rows, accords.Agreement.EPCI), EPCILimit)
}

// Mobility splits rows on the normalized mobility flag.
func Mobility(rows []accords.Agreement) MobilitySplit {
	var s MobilitySplit
	for _, a := range rows {
		if a.IsMobility() {
			s.Mobility++
		} else {
			s.Other++
		}
	}
	return s
}

// tally counts non-empty keys.
func tally(rows []accords.Agreement, key func(accords.Agreement) string) map[string]int {
	counts := make(map[string]int)
	for _, a := range rows {
		if k := key(a); k != "" {
			counts[k]++
		}
	}
	return counts
}

// ranked orders counts descending, ties by label, and truncates to limit
// when limit is positive.
func ranked(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Memo caches the statistics of the last result set it saw. Sets are
// immutable once published, so pointer identity is the cache key.
type Memo struct {
	mu    sync.Mutex
	key   *accords.RowSet
	stats Stats
}

// Get returns the statistics for rs, computing them at most once per set.
func (m *Memo) Get(rs *accords.RowSet) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rs != nil && rs == m.key {
		return m.stats
	}
	var rows []accords.Agreement
	if rs != nil {
		rows = rs.Rows
	}
	m.key = rs
	m.stats = Compute(rows)
	return m.stats
}
