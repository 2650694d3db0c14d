package query

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arthur-debert/accords/accords/filter"
)

func genLocation() gopter.Gen {
	return gopter.CombineGens(
		gen.AnyString(),
		gen.OneConstOf(filter.Region, filter.EPCI, filter.Commune),
	).Map(func(vals []interface{}) filter.Location {
		return filter.Location{Name: vals[0].(string), Granularity: vals[1].(filter.Granularity)}
	})
}

func genState() gopter.Gen {
	return gopter.CombineGens(
		gen.AnyString(),
		gen.AnyString(),
		gen.SliceOf(gen.AnyString()),
		gen.SliceOf(genLocation()),
		gen.Bool(),
		gen.Bool(),
	).Map(func(vals []interface{}) filter.State {
		s := filter.State{
			Global:       vals[0].(string),
			Measure:      vals[1].(string),
			OnlyMobility: vals[4].(bool),
			OnlyIDF:      vals[5].(bool),
		}
		for _, sector := range vals[2].([]string) {
			s.AddSector(sector)
		}
		for _, loc := range vals[3].([]filter.Location) {
			s.AddLocation(loc)
		}
		return s
	})
}

func TestComposerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	c := New("agreements")

	properties.Property("every placeholder has exactly one argument", prop.ForAll(
		func(s filter.State) bool {
			_, err := c.Render(s)
			return err == nil
		},
		genState(),
	))

	properties.Property("rendered predicate keeps quotes balanced", prop.ForAll(
		func(s filter.State) bool {
			rendered, err := c.Render(s)
			if err != nil {
				return false
			}
			return strings.Count(rendered, "'")%2 == 0
		},
		genState(),
	))

	properties.Property("empty iff match-all", prop.ForAll(
		func(s filter.State) bool {
			sql, _, err := c.Where(s)
			if err != nil {
				return false
			}
			return (sql == "true") == s.IsEmpty()
		},
		genState(),
	))

	properties.Property("sector and location selections combine with AND", prop.ForAll(
		func(sectors []string, locs []filter.Location) bool {
			var s filter.State
			for _, sector := range sectors {
				s.AddSector(sector)
			}
			for _, loc := range locs {
				s.AddLocation(loc)
			}
			if len(s.Sectors) == 0 || len(s.Locations) == 0 {
				return true
			}
			sql, args, err := c.Where(s)
			if err != nil {
				return false
			}
			return strings.HasPrefix(sql, "(SECTEUR IN (") &&
				strings.Contains(sql, ") AND (") &&
				len(args) == len(s.Sectors)+len(s.Locations)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(genLocation()),
	))

	properties.TestingRun(t)
}
