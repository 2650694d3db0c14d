package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/query"
	"github.com/arthur-debert/accords/accords/store"
	"github.com/arthur-debert/accords/testutil"
)

func run(t *testing.T, s *store.Store, state filter.State, opts ...query.Option) []string {
	t.Helper()

	c := query.New(accords.DefaultTable, opts...)
	stmt, args, err := c.Select(state)
	if err != nil {
		t.Fatalf("failed to compose query: %v", err)
	}
	rows, err := s.Query(context.Background(), stmt, args...)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	ids := testutil.IDs(accords.DecodeAgreements(rows))
	sort.Strings(ids)
	return ids
}

func TestLoadLocalTextAndCount(t *testing.T) {
	s := testutil.OpenStore(t)

	n, err := s.RowCount(context.Background(), accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != testutil.FixtureSize {
		t.Errorf("expected %d rows, got %d", testutil.FixtureSize, n)
	}
}

func TestFilteringAgainstEngine(t *testing.T) {
	s := testutil.OpenStore(t)

	tests := []struct {
		name  string
		state filter.State
		want  []string
	}{
		{
			name:  "empty state returns everything",
			state: filter.State{},
			want:  []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8"},
		},
		{
			name:  "sector",
			state: filter.State{Sectors: []string{"Transport"}},
			want:  testutil.TransportIDs,
		},
		{
			name:  "sectors are alternatives",
			state: filter.State{Sectors: []string{"Banque", "Chimie"}},
			want:  []string{"A3", "A4", "A5"},
		},
		{
			name:  "sector with quote",
			state: filter.State{Sectors: []string{"L'Industrie"}},
			want:  []string{"A6"},
		},
		{
			name:  "mobility across flag versions",
			state: filter.State{OnlyMobility: true},
			want:  testutil.MobilityIDs,
		},
		{
			name:  "idf",
			state: filter.State{OnlyIDF: true},
			want:  testutil.IDFIDs,
		},
		{
			name:  "dimensions are conjunctive",
			state: filter.State{Sectors: []string{"Transport"}, OnlyMobility: true},
			want:  []string{"A1", "A2"},
		},
		{
			name: "locations are alternatives across granularities",
			state: filter.State{Locations: []filter.Location{
				{Name: "Lyon", Granularity: filter.Commune},
				{Name: "Hauts-de-France", Granularity: filter.Region},
			}},
			want: []string{"A2", "A5"},
		},
		{
			name: "epci",
			state: filter.State{Locations: []filter.Location{
				{Name: "Métropole du Grand Paris", Granularity: filter.EPCI},
			}},
			want: []string{"A1", "A6"},
		},
		{
			name:  "global search is case-insensitive",
			state: filter.State{Global: "Vélo"},
			want:  []string{"A1", "A4", "A7"},
		},
		{
			name:  "global search treats percent literally",
			state: filter.State{Global: "50%"},
			want:  []string{"A6"},
		},
		{
			name:  "global search matches organization",
			state: filter.State{Global: "o'brien"},
			want:  []string{"A6"},
		},
		{
			name:  "measure search",
			state: filter.State{Measure: "forfait"},
			want:  []string{"A1", "A2", "A7"},
		},
		{
			name:  "commune with apostrophe",
			state: filter.State{Locations: []filter.Location{{Name: "Villeneuve-d'Ascq", Granularity: filter.Commune}}},
			want:  []string{"A5"},
		},
		{
			name:  "injection attempt matches nothing",
			state: filter.State{Sectors: []string{"x' OR '1'='1"}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, s, tt.state)
			want := append([]string{}, tt.want...)
			sort.Strings(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMobilityAndSectorScenario(t *testing.T) {
	s := testutil.OpenEmptyStore(t)
	content := `{"ID":"1","SECTEUR":"A","est_mobilites_durables_v2":"true"}
{"ID":"2","SECTEUR":"A","est_mobilites_durables_v2":"oui"}
{"ID":"3","SECTEUR":"B","est_mobilites_durables_v2":"false"}`

	if _, err := s.LoadLocalText(context.Background(), accords.DefaultTable, content); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cols, err := s.Columns(context.Background(), accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	schema := query.WithSchema(cols)

	got := run(t, s, filter.State{Sectors: []string{"A"}, OnlyMobility: true}, schema)
	if diff := cmp.Diff([]string{"1", "2"}, got); diff != "" {
		t.Errorf("sector A with mobility mismatch (-want +got):\n%s", diff)
	}

	got = run(t, s, filter.State{Sectors: []string{"B"}, OnlyMobility: true}, schema)
	if len(got) != 0 {
		t.Errorf("expected no rows, got %v", got)
	}

	// the table has no location columns: a location filter matches nothing
	got = run(t, s, filter.State{Locations: []filter.Location{{Name: "Paris", Granularity: filter.Commune}}}, schema)
	if len(got) != 0 {
		t.Errorf("expected no rows without location columns, got %v", got)
	}
}

func TestFailedLocalLoadKeepsPreviousTable(t *testing.T) {
	s := testutil.OpenStore(t)

	_, err := s.LoadLocalText(context.Background(), accords.DefaultTable, "{\"ID\":\"x\"}\nnot json\n")
	var perr *accords.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line != 2 || perr.Table != accords.DefaultTable {
		t.Errorf("unexpected error details: %+v", perr)
	}

	n, err := s.RowCount(context.Background(), accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != testutil.FixtureSize {
		t.Errorf("expected previous table to survive with %d rows, got %d", testutil.FixtureSize, n)
	}
}

func TestLocalLoadReplacesTable(t *testing.T) {
	s := testutil.OpenStore(t)

	n, err := s.LoadLocalText(context.Background(), accords.DefaultTable, `{"ID":"only","SECTEUR":"Z"}`)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}

	sectors, err := s.Sectors(context.Background(), accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Z"}, sectors); diff != "" {
		t.Errorf("sectors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidTable(t *testing.T) {
	s := testutil.OpenEmptyStore(t)

	if _, err := s.LoadLocalText(context.Background(), "agreements; DROP TABLE x", `{"ID":"1"}`); err == nil {
		t.Error("expected invalid table name to be rejected")
	}
	if _, err := s.LoadRemote(context.Background(), "bad name", "/dev/null"); err == nil {
		t.Error("expected invalid table name to be rejected")
	}
}

func TestDistinctOptions(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx := context.Background()

	sectors, err := s.Sectors(ctx, accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Banque", "Chimie", "Commerce", "L'Industrie", "Transport"}
	if diff := cmp.Diff(want, sectors); diff != "" {
		t.Errorf("sectors mismatch (-want +got):\n%s", diff)
	}

	opts, err := s.LocationOptions(ctx, accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	have := make(map[filter.Location]bool, len(opts))
	for _, o := range opts {
		if have[o] {
			t.Errorf("duplicate option %+v", o)
		}
		have[o] = true
	}
	for _, o := range []filter.Location{
		{Name: "Île-de-France", Granularity: filter.Region},
		{Name: "Métropole de Lyon", Granularity: filter.EPCI},
		{Name: "Paris", Granularity: filter.Commune},
		{Name: "Villeneuve-d'Ascq", Granularity: filter.Commune},
	} {
		if !have[o] {
			t.Errorf("expected option %+v", o)
		}
	}
	// 3 regions, 5 EPCIs, 5 communes
	if len(opts) != 13 {
		t.Errorf("expected 13 options, got %d", len(opts))
	}
}

func TestColumns(t *testing.T) {
	s := testutil.OpenStore(t)

	cols, err := s.Columns(context.Background(), accords.DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) == 0 || cols[0] != accords.ColID {
		t.Errorf("expected columns to start with %s, got %v", accords.ColID, cols)
	}
	joined := strings.Join(cols, ",")
	for _, col := range []string{accords.ColMobility, accords.ColMobilityLegacy, accords.ColCommune} {
		if !strings.Contains(joined, col) {
			t.Errorf("expected column %s in %v", col, cols)
		}
	}
}

func TestQueryNormalizesValues(t *testing.T) {
	s := testutil.OpenStore(t)

	rows, err := s.Query(context.Background(), "SELECT * FROM agreements WHERE ID = ?", "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	a := accords.DecodeAgreement(rows[0])
	if a.DepositDate != "2024-02-03" {
		t.Errorf("expected date rendered as 2024-02-03, got %q", a.DepositDate)
	}
	if !a.Location.HasCoordinates() {
		t.Error("expected coordinates")
	}
	if diff := cmp.Diff([]string{"vélos de service", "parking vélo"}, a.MaterialMeans()); diff != "" {
		t.Errorf("means mismatch (-want +got):\n%s", diff)
	}

	rows, err = s.Query(context.Background(), "SELECT * FROM agreements WHERE ID = ?", "A4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a = accords.DecodeAgreement(rows[0])
	if a.MobilityFlag != "1" || !a.IsMobility() {
		t.Errorf("expected legacy flag 1 to mean mobility, got %q", a.MobilityFlag)
	}
	if a.Location != nil {
		t.Errorf("expected no location, got %+v", a.Location)
	}
}

func TestNumericMobilityFlagAgreesWithToggle(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenEmptyStore(t)
	content := `{"ID":"a","SECTEUR":"Transport","est_mobilites_durables":1.0}
{"ID":"b","SECTEUR":"Transport","est_mobilites_durables":0.0}
{"ID":"c","SECTEUR":"Transport","est_mobilites_durables":1.5}
{"ID":"d","SECTEUR":"Transport","est_mobilites_durables":null}
`
	if _, err := s.LoadLocalText(ctx, accords.DefaultTable, content); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cols, err := s.Columns(ctx, accords.DefaultTable)
	if err != nil {
		t.Fatalf("columns failed: %v", err)
	}

	rows, err := s.Query(ctx, "SELECT * FROM agreements")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	var flagged []string
	for _, a := range accords.DecodeAgreements(rows) {
		if a.IsMobility() {
			flagged = append(flagged, a.ID)
		}
	}
	sort.Strings(flagged)

	got := run(t, s, filter.State{OnlyMobility: true}, query.WithSchema(cols))
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("toggle mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, flagged); diff != "" {
		t.Errorf("decoded flags disagree with the toggle (-toggle +decoded):\n%s", diff)
	}
}

func TestQueryErrorCarriesStatement(t *testing.T) {
	s := testutil.OpenEmptyStore(t)

	_, err := s.Query(context.Background(), "SELECT * FROM missing_table")
	var qerr *accords.QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if qerr.SQL != "SELECT * FROM missing_table" {
		t.Errorf("unexpected statement %q", qerr.SQL)
	}
}

type parquetAgreement struct {
	ID       string `parquet:"ID"`
	Sector   string `parquet:"SECTEUR"`
	Mobility string `parquet:"est_mobilites_durables_v2"`
}

func TestLoadRemoteFromParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agreements.parquet")
	records := []parquetAgreement{
		{ID: "p1", Sector: "Transport", Mobility: "true"},
		{ID: "p2", Sector: "Banque", Mobility: "false"},
	}
	if err := parquet.WriteFile(path, records); err != nil {
		t.Fatalf("failed to write parquet: %v", err)
	}

	s := testutil.OpenEmptyStore(t)
	info, err := s.LoadRemote(context.Background(), accords.DefaultTable, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if info.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", info.Rows)
	}
	if diff := cmp.Diff([]string{"ID", "SECTEUR", "est_mobilites_durables_v2"}, info.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	got := run(t, s, filter.State{OnlyMobility: true}, query.WithSchema(info.Columns))
	if diff := cmp.Diff([]string{"p1"}, got); diff != "" {
		t.Errorf("mobility mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRemoteRejectsNonParquet(t *testing.T) {
	s := testutil.OpenStore(t)
	path := filepath.Join(t.TempDir(), "fake.parquet")
	if err := writeFile(path, "not parquet"); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadRemote(context.Background(), accords.DefaultTable, path)
	var lerr *accords.LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}

	n, err := s.RowCount(context.Background(), accords.DefaultTable)
	if err != nil || n != testutil.FixtureSize {
		t.Errorf("expected previous table to survive, got %d rows (%v)", n, err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	opts := store.Options{CacheDir: t.TempDir(), Logger: testutil.Logger()}

	first, err := store.Initialize(ctx, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Initialize(ctx, store.Options{Threads: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the same store from repeated Initialize calls")
	}

	if err := store.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := store.Shutdown(); err != nil {
		t.Errorf("second shutdown should be a no-op, got %v", err)
	}

	third, err := store.Initialize(ctx, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = store.Shutdown() })
	if third == first {
		t.Error("expected a fresh store after Shutdown")
	}
}

func TestOpenWithThreads(t *testing.T) {
	s, err := store.Open(context.Background(), store.Options{Threads: 1, Logger: testutil.Logger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = s.Close() }()

	rows, err := s.Query(context.Background(), "SELECT current_setting('threads') AS threads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0]["threads"]; got != "1" {
		t.Errorf("expected threads setting 1, got %v (%T)", got, got)
	}
}
