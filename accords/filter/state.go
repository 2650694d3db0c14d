// Package filter holds the explorer's filter state: two free-text terms,
// the selected sectors, the selected locations and two toggles.
package filter

import (
	"fmt"
	"strings"
)

// Granularity is the level of a selected location.
type Granularity string

const (
	Region  Granularity = "Région"
	EPCI    Granularity = "EPCI"
	Commune Granularity = "Commune"
)

// Granularities lists the supported levels in display order.
var Granularities = []Granularity{Region, EPCI, Commune}

// ParseGranularity accepts the display names and their unaccented forms,
// case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "région", "region":
		return Region, nil
	case "epci":
		return EPCI, nil
	case "commune":
		return Commune, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Location is one selected geographic chip. Two locations are the same
// selection only if both name and granularity match.
type Location struct {
	Name        string      `json:"name"`
	Granularity Granularity `json:"type"`
}

// State is the current value of every filter dimension. The zero value is
// the empty state. Sectors and Locations keep insertion order and never hold
// duplicates when mutated through the methods.
type State struct {
	Global       string     `json:"global"`
	Measure      string     `json:"measure"`
	Sectors      []string   `json:"sectors"`
	Locations    []Location `json:"locations"`
	OnlyMobility bool       `json:"only_mobility"`
	OnlyIDF      bool       `json:"only_idf"`
}

// IsEmpty reports whether no dimension constrains the result.
func (s State) IsEmpty() bool {
	return s.Global == "" && s.Measure == "" && len(s.Sectors) == 0 &&
		len(s.Locations) == 0 && !s.OnlyMobility && !s.OnlyIDF
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Sectors = append([]string(nil), s.Sectors...)
	c.Locations = append([]Location(nil), s.Locations...)
	return c
}

// Equal compares two states, order of selections included.
func (s State) Equal(o State) bool {
	if s.Global != o.Global || s.Measure != o.Measure ||
		s.OnlyMobility != o.OnlyMobility || s.OnlyIDF != o.OnlyIDF ||
		len(s.Sectors) != len(o.Sectors) || len(s.Locations) != len(o.Locations) {
		return false
	}
	for i := range s.Sectors {
		if s.Sectors[i] != o.Sectors[i] {
			return false
		}
	}
	for i := range s.Locations {
		if s.Locations[i] != o.Locations[i] {
			return false
		}
	}
	return true
}

// SetGlobal sets the global search term, trimmed.
func (s *State) SetGlobal(term string) { s.Global = strings.TrimSpace(term) }

// SetMeasure sets the measure label search term, trimmed.
func (s *State) SetMeasure(term string) { s.Measure = strings.TrimSpace(term) }

// SetMobility sets the sustainable-mobility toggle.
func (s *State) SetMobility(on bool) { s.OnlyMobility = on }

// SetIDF sets the Île-de-France toggle.
func (s *State) SetIDF(on bool) { s.OnlyIDF = on }

// AddSector selects a sector. Blank or already selected sectors are ignored.
// It reports whether the state changed.
func (s *State) AddSector(sector string) bool {
	if strings.TrimSpace(sector) == "" || s.HasSector(sector) {
		return false
	}
	s.Sectors = append(s.Sectors, sector)
	return true
}

// RemoveSector deselects a sector.
func (s *State) RemoveSector(sector string) bool {
	for i, v := range s.Sectors {
		if v == sector {
			s.Sectors = append(s.Sectors[:i:i], s.Sectors[i+1:]...)
			return true
		}
	}
	return false
}

// HasSector reports whether a sector is selected.
func (s State) HasSector(sector string) bool {
	for _, v := range s.Sectors {
		if v == sector {
			return true
		}
	}
	return false
}

// AddLocation selects a location. Blank names, unknown granularities and
// already selected (name, granularity) pairs are ignored.
func (s *State) AddLocation(loc Location) bool {
	if strings.TrimSpace(loc.Name) == "" || !validGranularity(loc.Granularity) || s.HasLocation(loc) {
		return false
	}
	s.Locations = append(s.Locations, loc)
	return true
}

// RemoveLocation deselects exactly one (name, granularity) pair.
func (s *State) RemoveLocation(loc Location) bool {
	for i, v := range s.Locations {
		if v == loc {
			s.Locations = append(s.Locations[:i:i], s.Locations[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveLocationName deselects a name at every granularity.
func (s *State) RemoveLocationName(name string) bool {
	kept := s.Locations[:0:0]
	for _, v := range s.Locations {
		if v.Name != name {
			kept = append(kept, v)
		}
	}
	changed := len(kept) != len(s.Locations)
	s.Locations = kept
	return changed
}

// HasLocation reports whether the pair is selected.
func (s State) HasLocation(loc Location) bool {
	for _, v := range s.Locations {
		if v == loc {
			return true
		}
	}
	return false
}

// HasLocationName reports whether the name is selected at any granularity.
func (s State) HasLocationName(name string) bool {
	for _, v := range s.Locations {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Reset clears every dimension.
func (s *State) Reset() { *s = State{} }

// Normalize rebuilds the state through the setters and Add methods,
// trimming the search terms and dropping duplicates and invalid entries
// from a state decoded from outside.
func (s State) Normalize() State {
	n := State{
		OnlyMobility: s.OnlyMobility,
		OnlyIDF:      s.OnlyIDF,
	}
	n.SetGlobal(s.Global)
	n.SetMeasure(s.Measure)
	for _, sector := range s.Sectors {
		n.AddSector(sector)
	}
	for _, loc := range s.Locations {
		if g, err := ParseGranularity(string(loc.Granularity)); err == nil {
			loc.Granularity = g
		}
		n.AddLocation(loc)
	}
	return n
}

func validGranularity(g Granularity) bool {
	for _, v := range Granularities {
		if v == g {
			return true
		}
	}
	return false
}
