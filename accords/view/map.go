// Package view holds presentation helpers over published results: map
// markers, external map links, term highlighting and filter suggestions.
package view

import (
	"fmt"

	"github.com/arthur-debert/accords/accords"
)

// MapLimit caps the markers rendered at once.
const MapLimit = 1000

// Point is one map marker.
type Point struct {
	ID           string  `json:"id"`
	Organization string  `json:"organization"`
	Commune      string  `json:"commune,omitempty"`
	Sector       string  `json:"sector,omitempty"`
	Mobility     bool    `json:"mobility"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// Map is the marker layer for a result set.
type Map struct {
	Points []Point `json:"points"`
	// Geolocated is the number of rows with coordinates, before the cap.
	Geolocated int    `json:"geolocated"`
	Total      int    `json:"total"`
	Truncated  bool   `json:"truncated"`
	Message    string `json:"message"`
}

// MapPoints keeps the geolocated rows, in order, up to MapLimit.
func MapPoints(rows []accords.Agreement) Map {
	m := Map{Points: []Point{}, Total: len(rows)}
	for _, a := range rows {
		if !a.Location.HasCoordinates() {
			continue
		}
		m.Geolocated++
		if len(m.Points) >= MapLimit {
			continue
		}
		m.Points = append(m.Points, Point{
			ID:           a.ID,
			Organization: a.Organization,
			Commune:      a.Commune(),
			Sector:       a.Sector,
			Mobility:     a.IsMobility(),
			Lat:          *a.Location.Latitude,
			Lon:          *a.Location.Longitude,
		})
	}

	m.Truncated = m.Geolocated > MapLimit
	if m.Truncated {
		m.Message = fmt.Sprintf("Affichage limité aux %d premiers établissements géolocalisés sur %d résultats.", MapLimit, m.Total)
	} else {
		m.Message = fmt.Sprintf("%d établissements géolocalisés.", m.Geolocated)
	}
	return m
}
