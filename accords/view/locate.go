package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/arthur-debert/accords/accords"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// LocateURL links to an external map search for the record: by
// coordinates when known, otherwise by organization, commune and
// department code.
func LocateURL(a accords.Agreement) string {
	if a.Location.HasCoordinates() {
		lat := strconv.FormatFloat(*a.Location.Latitude, 'f', -1, 64)
		lon := strconv.FormatFloat(*a.Location.Longitude, 'f', -1, 64)
		return mapsSearchURL + lat + "," + lon
	}

	parts := []string{a.Organization}
	if a.Location != nil {
		parts = append(parts, a.Location.Commune, a.Location.DepartmentCode)
	}
	parts = append(parts, "France")
	q := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return mapsSearchURL + strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}
