// Package query turns a filter.State into a SQL predicate over the
// agreements table.
//
// Dimensions combine with AND; values inside one multi-select dimension
// combine with OR. User text is always a bound argument; Render produces the
// inlined, quote-escaped form for display.
package query

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/filter"
)

// globalColumns are searched by the global term.
var globalColumns = []string{accords.ColOrganization, accords.ColTitle, accords.ColExcerpt}

// mobilityColumns in precedence order.
var mobilityColumns = []string{accords.ColMobility, accords.ColMobilityLegacy}

var granularityColumns = map[filter.Granularity]string{
	filter.Region:  accords.ColRegion,
	filter.EPCI:    accords.ColEPCI,
	filter.Commune: accords.ColCommune,
}

var (
	matchAll  = squirrel.Expr("true")
	matchNone = squirrel.Expr("false")
)

// Composer builds predicates for one table.
type Composer struct {
	table  string
	schema map[string]bool
	region string
	sq     squirrel.StatementBuilderType
}

// Option configures a Composer.
type Option func(*Composer)

// WithSchema restricts predicates to the given columns: a condition on a
// column the table lacks matches nothing instead of failing in the engine.
// Without a schema every column is assumed present.
func WithSchema(columns []string) Option {
	return func(c *Composer) {
		c.schema = make(map[string]bool, len(columns))
		for _, col := range columns {
			c.schema[strings.ToLower(col)] = true
		}
	}
}

// New creates a Composer for table.
func New(table string, opts ...Option) *Composer {
	c := &Composer{
		table:  table,
		region: accords.IDFRegion,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the table the composer targets.
func (c *Composer) Table() string {
	return c.table
}

// Predicate returns the WHERE expression for s.
func (c *Composer) Predicate(s filter.State) squirrel.Sqlizer {
	var conds squirrel.And

	if s.Global != "" {
		conds = append(conds, c.containsAny(globalColumns, s.Global))
	}

	if s.Measure != "" {
		conds = append(conds, c.containsAny([]string{accords.ColMeasure}, s.Measure))
	}

	if len(s.Sectors) > 0 {
		if c.has(accords.ColSector) {
			conds = append(conds, squirrel.Eq{accords.ColSector: append([]string(nil), s.Sectors...)})
		} else {
			conds = append(conds, matchNone)
		}
	}

	if len(s.Locations) > 0 {
		conds = append(conds, c.locations(s.Locations))
	}

	if s.OnlyMobility {
		conds = append(conds, c.mobility())
	}

	if s.OnlyIDF {
		if c.has(accords.ColRegion) {
			conds = append(conds, squirrel.Eq{accords.ColRegion: c.region})
		} else {
			conds = append(conds, matchNone)
		}
	}

	switch len(conds) {
	case 0:
		return matchAll
	case 1:
		return conds[0]
	}
	return conds
}

// Where returns the predicate SQL and its arguments.
func (c *Composer) Where(s filter.State) (string, []interface{}, error) {
	return c.Predicate(s).ToSql()
}

// Select returns the full query for s.
func (c *Composer) Select(s filter.State) (string, []interface{}, error) {
	if !ValidIdentifier(c.table) {
		return "", nil, fmt.Errorf("invalid table name %q", c.table)
	}
	return c.sq.Select("*").From(c.table).Where(c.Predicate(s)).ToSql()
}

// Render returns the predicate for s with every argument inlined as an
// escaped literal.
func (c *Composer) Render(s filter.State) (string, error) {
	sql, args, err := c.Where(s)
	if err != nil {
		return "", err
	}
	return Inline(sql, args)
}

// containsAny matches rows where any of the columns contains term,
// case-insensitively.
func (c *Composer) containsAny(columns []string, term string) squirrel.Sqlizer {
	pattern := "%" + EscapeLike(term) + "%"
	var ors squirrel.Or
	for _, col := range columns {
		if !c.has(col) {
			continue
		}
		ors = append(ors, squirrel.Expr(col+` ILIKE ? ESCAPE '\'`, pattern))
	}
	switch len(ors) {
	case 0:
		return matchNone
	case 1:
		return ors[0]
	}
	return ors
}

func (c *Composer) locations(locs []filter.Location) squirrel.Sqlizer {
	var ors squirrel.Or
	for _, loc := range locs {
		col, ok := granularityColumns[loc.Granularity]
		if !ok || !c.has(col) {
			continue
		}
		ors = append(ors, squirrel.Eq{col: loc.Name})
	}
	if len(ors) == 0 {
		return matchNone
	}
	return ors
}

// mobility matches the normalized flag against MobilityValues, or any value
// that reads as the number 1 (a 0/1 flag stored as DOUBLE casts to '1.0').
// The v2 column wins whenever it holds a non-blank value.
func (c *Composer) mobility() squirrel.Sqlizer {
	var present []string
	for _, col := range mobilityColumns {
		if c.has(col) {
			present = append(present, col)
		}
	}

	var expr string
	switch len(present) {
	case 0:
		return matchNone
	case 1:
		expr = fmt.Sprintf("CAST(%s AS VARCHAR)", present[0])
	default:
		expr = fmt.Sprintf("coalesce(nullif(trim(CAST(%s AS VARCHAR)), ''), CAST(%s AS VARCHAR))",
			present[0], present[1])
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(accords.MobilityValues)), ",")
	args := make([]interface{}, len(accords.MobilityValues))
	for i, v := range accords.MobilityValues {
		args[i] = v
	}
	return squirrel.Expr(fmt.Sprintf("(lower(trim(%s)) IN (%s) OR TRY_CAST(trim(%s) AS DOUBLE) = 1)",
		expr, placeholders, expr), args...)
}

func (c *Composer) has(col string) bool {
	if c.schema == nil {
		return true
	}
	return c.schema[strings.ToLower(col)]
}
