package aggregate

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/testutil"
)

func TestFixtureStats(t *testing.T) {
	stats := Compute(testutil.Agreements(t))

	if stats.Total != testutil.FixtureSize {
		t.Errorf("expected total %d, got %d", testutil.FixtureSize, stats.Total)
	}

	tests := []struct {
		name string
		got  []Count
		want []Count
	}{
		{
			name: "top measures",
			got:  stats.TopMeasures,
			want: []Count{
				{"Forfait mobilités durables", 3},
				{"Covoiturage 50% pris en charge", 1},
				{"Indemnité kilométrique vélo", 1},
				{"Navettes d'entreprise", 1},
				{"Prise en charge abonnement transport", 1},
			},
		},
		{
			name: "monthly",
			got:  stats.Monthly,
			want: []Count{
				{"2023-11", 2},
				{"2024-01", 1},
				{"2024-02", 2},
				{"2024-03", 2},
			},
		},
		{
			name: "regions",
			got:  stats.Regions,
			want: []Count{
				{"Île-de-France", 3},
				{"Auvergne-Rhône-Alpes", 2},
				{"Hauts-de-France", 1},
			},
		},
		{
			name: "departments",
			got:  stats.Departments,
			want: []Count{
				{"Paris", 2},
				{"Hauts-de-Seine", 1},
				{"Isère", 1},
				{"Nord", 1},
				{"Rhône", 1},
			},
		},
		{
			name: "epcis",
			got:  stats.EPCIs,
			want: []Count{
				{"Métropole du Grand Paris", 2},
				{"Grenoble-Alpes-Métropole", 1},
				{"Métropole Européenne de Lille", 1},
				{"Métropole de Lyon", 1},
				{"Paris Ouest La Défense", 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if diff := cmp.Diff(MobilitySplit{Mobility: 5, Other: 3}, stats.Mobility); diff != "" {
		t.Errorf("mobility mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthlyFallsBackToTextDate(t *testing.T) {
	rows := []accords.Agreement{
		{ID: "1", DepositDate: "2024-02-03"},
		{ID: "2", TextDate: "2024-02-17"},
		{ID: "3", DepositDate: "2024-01-01", TextDate: "2023-12-01"},
		{ID: "4"},
		{ID: "5", TextDate: "2024"},
	}

	want := []Count{{"2024-01", 1}, {"2024-02", 2}}
	if diff := cmp.Diff(want, Monthly(rows)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRankingLimitsAndTies(t *testing.T) {
	var rows []accords.Agreement
	for i := 0; i < 25; i++ {
		// department k appears k+1 times
		for j := 0; j <= i; j++ {
			rows = append(rows, accords.Agreement{
				Measure:  fmt.Sprintf("  mesure %02d ", i),
				Location: &accords.Location{Department: fmt.Sprintf("dep %02d", i), EPCI: "same"},
			})
		}
	}

	deps := Departments(rows)
	if len(deps) != DepartmentLimit {
		t.Fatalf("expected %d departments, got %d", DepartmentLimit, len(deps))
	}
	if deps[0] != (Count{"dep 24", 25}) || deps[19] != (Count{"dep 05", 6}) {
		t.Errorf("unexpected ranking: first %v, last %v", deps[0], deps[19])
	}

	measures := TopMeasures(rows)
	if len(measures) != MeasureLimit {
		t.Fatalf("expected %d measures, got %d", MeasureLimit, len(measures))
	}
	if measures[0].Label != "mesure 24" {
		t.Errorf("expected trimmed label, got %q", measures[0].Label)
	}

	if diff := cmp.Diff([]Count{{"same", 325}}, EPCIs(rows)); diff != "" {
		t.Errorf("epci mismatch (-want +got):\n%s", diff)
	}

	tied := []accords.Agreement{
		{Location: &accords.Location{Region: "Normandie"}},
		{Location: &accords.Location{Region: "Bretagne"}},
		{Location: &accords.Location{Region: "Occitanie"}},
		{Location: &accords.Location{Region: "Occitanie"}},
		{},
	}
	want := []Count{{"Occitanie", 2}, {"Bretagne", 1}, {"Normandie", 1}}
	if diff := cmp.Diff(want, Regions(tied)); diff != "" {
		t.Errorf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyInput(t *testing.T) {
	stats := Compute(nil)
	if stats.Total != 0 || len(stats.TopMeasures) != 0 || len(stats.Monthly) != 0 ||
		len(stats.Regions) != 0 || len(stats.Keywords) != 0 || stats.Mobility != (MobilitySplit{}) {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestMemo(t *testing.T) {
	var memo Memo
	rs := testutil.RowSet(t)

	first := memo.Get(rs)
	if first.Total != testutil.FixtureSize {
		t.Fatalf("expected %d rows, got %d", testutil.FixtureSize, first.Total)
	}

	// same pointer: cached even if the slice were to change
	rs.Rows = rs.Rows[:1]
	if got := memo.Get(rs); got.Total != testutil.FixtureSize {
		t.Errorf("expected cached stats, got total %d", got.Total)
	}

	other := testutil.RowSet(t, "A1", "A2")
	if got := memo.Get(other); got.Total != 2 {
		t.Errorf("expected recomputed stats for a new set, got total %d", got.Total)
	}

	if got := memo.Get(nil); got.Total != 0 {
		t.Errorf("expected empty stats for nil set, got %+v", got)
	}
}
