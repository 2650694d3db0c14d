package accords

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one normalized result row as returned by the store: column name to
// value, where values are strings, float64, int32 and smaller integers,
// bools, nested []any / map[string]any, or nil.
type Row map[string]any

// Agreement is one record of the dataset.
type Agreement struct {
	ID            string `json:"id"`
	SIRET         string `json:"siret"`
	Organization  string `json:"organization"`
	Title         string `json:"title"`
	Sector        string `json:"sector"`
	APECode       string `json:"ape_code,omitempty"`
	Unions        string `json:"unions,omitempty"`
	Number        string `json:"number,omitempty"`
	Measure       string `json:"measure"`
	Excerpt       string `json:"excerpt,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	LegifranceURL string `json:"legifrance_url,omitempty"`

	DepositDate   string `json:"deposit_date,omitempty"`
	TextDate      string `json:"text_date,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`

	// MobilityFlag is the normalized (trimmed, lower-cased) flag value.
	MobilityFlag string `json:"mobility_flag,omitempty"`
	// MeansRaw is the JSON-encoded material means list as stored.
	MeansRaw string `json:"-"`

	Location *Location `json:"location,omitempty"`
}

// Location holds the optional geographic fields of a geolocated record.
type Location struct {
	Latitude       *float64 `json:"lat,omitempty"`
	Longitude      *float64 `json:"lon,omitempty"`
	Region         string   `json:"region,omitempty"`
	Department     string   `json:"department,omitempty"`
	DepartmentCode string   `json:"department_code,omitempty"`
	EPCI           string   `json:"epci,omitempty"`
	EPCIID         string   `json:"epci_id,omitempty"`
	Commune        string   `json:"commune,omitempty"`
	CommuneCode    string   `json:"commune_code,omitempty"`
}

// HasCoordinates reports whether both coordinates are present and non-zero.
func (l *Location) HasCoordinates() bool {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return false
	}
	return *l.Latitude != 0 && *l.Longitude != 0
}

// IsMobility reports whether the record is flagged as sustainable mobility.
func (a Agreement) IsMobility() bool {
	return IsMobilityFlag(a.MobilityFlag)
}

// MaterialMeans parses the material means list. Malformed or non-array
// content yields an empty list.
func (a Agreement) MaterialMeans() []string {
	return ParseMeans(a.MeansRaw)
}

// Region returns the record's region or "".
func (a Agreement) Region() string {
	if a.Location == nil {
		return ""
	}
	return a.Location.Region
}

// Department returns the record's department name or "".
func (a Agreement) Department() string {
	if a.Location == nil {
		return ""
	}
	return a.Location.Department
}

// EPCI returns the record's EPCI name or "".
func (a Agreement) EPCI() string {
	if a.Location == nil {
		return ""
	}
	return a.Location.EPCI
}

// Commune returns the record's commune name or "".
func (a Agreement) Commune() string {
	if a.Location == nil {
		return ""
	}
	return a.Location.Commune
}

// ReferenceDate is the deposit date, or the text date when the deposit date
// is absent.
func (a Agreement) ReferenceDate() string {
	if a.DepositDate != "" {
		return a.DepositDate
	}
	return a.TextDate
}

// DecodeAgreement builds an Agreement from a store row. Unknown columns are
// ignored and missing ones leave the zero value.
func DecodeAgreement(row Row) Agreement {
	a := Agreement{
		ID:            text(row[ColID]),
		SIRET:         text(row[ColSIRET]),
		Organization:  text(row[ColOrganization]),
		Title:         text(row[ColTitle]),
		Sector:        text(row[ColSector]),
		APECode:       text(row[ColAPECode]),
		Unions:        text(row[ColUnions]),
		Number:        text(row[ColNumber]),
		Measure:       text(row[ColMeasure]),
		Excerpt:       text(row[ColExcerpt]),
		Keyword:       text(row[ColKeyword]),
		LegifranceURL: text(row[ColLegifranceURL]),
		DepositDate:   text(row[ColDepositDate]),
		TextDate:      text(row[ColTextDate]),
		EffectiveDate: text(row[ColEffectiveDate]),
		EndDate:       text(row[ColEndDate]),
		MobilityFlag:  NormalizeFlag(text(row[ColMobility]), text(row[ColMobilityLegacy])),
		MeansRaw:      preferred(text(row[ColMeans]), text(row[ColMeansLegacy])),
	}

	loc := &Location{
		Latitude:       number(row[ColLatitude]),
		Longitude:      number(row[ColLongitude]),
		Region:         text(row[ColRegion]),
		Department:     text(row[ColDepartment]),
		DepartmentCode: text(row[ColDepartmentCode]),
		EPCI:           text(row[ColEPCI]),
		EPCIID:         text(row[ColEPCIID]),
		Commune:        text(row[ColCommune]),
		CommuneCode:    text(row[ColCommuneCode]),
	}
	if loc.Latitude != nil || loc.Longitude != nil || loc.Region != "" ||
		loc.Department != "" || loc.EPCI != "" || loc.Commune != "" {
		a.Location = loc
	}
	return a
}

// DecodeAgreements decodes every row.
func DecodeAgreements(rows []Row) []Agreement {
	out := make([]Agreement, len(rows))
	for i, row := range rows {
		out[i] = DecodeAgreement(row)
	}
	return out
}

// NormalizeFlag picks the mobility flag value across schema versions and
// normalizes it. The primary (v2) field wins whenever it holds a non-blank
// value, including "false"; the legacy field is only consulted when the
// primary one is absent or blank.
func NormalizeFlag(primary, legacy string) string {
	return strings.ToLower(preferred(primary, legacy))
}

// IsMobilityFlag reports whether a normalized flag value means "mobility":
// one of MobilityValues, or a number equal to 1 ("1.0", "01").
func IsMobilityFlag(flag string) bool {
	flag = strings.ToLower(strings.TrimSpace(flag))
	for _, v := range MobilityValues {
		if flag == v {
			return true
		}
	}
	if strings.Contains(flag, "x") {
		// hex literals parse in Go but not in the engine's DOUBLE cast
		return false
	}
	f, err := strconv.ParseFloat(flag, 64)
	return err == nil && f == 1
}

// ParseMeans decodes a JSON array of strings. Anything else yields nil.
func ParseMeans(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var means []string
	if err := json.Unmarshal([]byte(raw), &means); err != nil {
		return nil
	}
	return means
}

func preferred(primary, fallback string) string {
	if p := strings.TrimSpace(primary); p != "" {
		return p
	}
	return strings.TrimSpace(fallback)
}

func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case []any:
		// list columns keep their JSON form, as the means field does
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

func number(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int32:
		f = float64(val)
	case int16:
		f = float64(val)
	case int:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
