package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/accords/accords/filter"
)

// filterFlags are the filter dimensions shared by query, stats and explain.
type filterFlags struct {
	search    string
	measure   string
	sectors   []string
	locations []string
	mobility  bool
	idf       bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.search, "search", "s", "", "Search organization, title and excerpt")
	flags.StringVarP(&f.measure, "measure", "m", "", "Search the extracted measure")
	flags.StringArrayVar(&f.sectors, "sector", nil, "Keep a sector (repeatable)")
	flags.StringArrayVar(&f.locations, "location", nil, "Keep a place as type:name, e.g. Commune:Paris or EPCI:Métropole de Lyon (repeatable)")
	flags.BoolVar(&f.mobility, "mobility", false, "Only sustainable mobility agreements")
	flags.BoolVar(&f.idf, "idf", false, "Only agreements located in Île-de-France")
}

// state builds the filter state, rejecting malformed locations.
func (f *filterFlags) state(operation string) (filter.State, error) {
	var st filter.State
	st.SetGlobal(f.search)
	st.SetMeasure(f.measure)
	st.SetMobility(f.mobility)
	st.SetIDF(f.idf)
	for _, s := range f.sectors {
		st.AddSector(s)
	}
	for _, raw := range f.locations {
		loc, err := parseLocation(raw)
		if err != nil {
			return filter.State{}, NewValidationError(operation, "location", raw,
				"Use type:name where type is Région, EPCI or Commune")
		}
		st.AddLocation(loc)
	}
	return st, nil
}

func parseLocation(raw string) (filter.Location, error) {
	typ, name, found := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return filter.Location{}, NewValidationError("parse location", "location", raw)
	}
	g, err := filter.ParseGranularity(typ)
	if err != nil {
		return filter.Location{}, err
	}
	return filter.Location{Name: name, Granularity: g}, nil
}
