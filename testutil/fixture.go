// Package testutil provides the shared agreements fixture used across the
// package tests.
//
// The fixture holds eight records chosen to exercise every filter dimension:
//
//	ID  sector       flag (v2 / legacy)  region                date
//	A1  Transport    "true"              Île-de-France         2024-02-03
//	A2  Transport    "oui"               Auvergne-Rhône-Alpes  2024-02-17
//	A3  Banque       "false" / 1         Île-de-France         2023-11-05
//	A4  Banque       "" / 1              -                     (text) 2024-03-01
//	A5  Chimie       "NON"               Hauts-de-France       2024-03-15
//	A6  L'Industrie  " TRUE "            Île-de-France         2024-01-10
//	A7  Commerce     "true"              Auvergne-Rhône-Alpes  2023-11-20
//	A8  Transport    "0"                 -                     -
package testutil

import (
	"bufio"
	"context"
	_ "embed"
	"io"
	"log/slog"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/store"
)

//go:embed testdata/agreements.jsonl
var agreementsJSONL string

// FixtureSize is the number of records in the fixture.
const FixtureSize = 8

// Well-known subsets of the fixture, by ID, in file order.
var (
	MobilityIDs  = []string{"A1", "A2", "A4", "A6", "A7"}
	IDFIDs       = []string{"A1", "A3", "A6"}
	TransportIDs = []string{"A1", "A2", "A8"}
	GeoIDs       = []string{"A1", "A2", "A6", "A7"}
)

// AgreementsJSONL returns the raw line-delimited fixture.
func AgreementsJSONL() string {
	return agreementsJSONL
}

// Rows decodes the fixture without going through the engine.
func Rows(t testing.TB) []accords.Row {
	t.Helper()

	var rows []accords.Row
	scanner := bufio.NewScanner(strings.NewReader(agreementsJSONL))
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row accords.Row
		if err := jsoniter.UnmarshalFromString(line, &row); err != nil {
			t.Fatalf("failed to parse fixture line: %v", err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return rows
}

// Agreements returns the decoded fixture records.
func Agreements(t testing.TB) []accords.Agreement {
	t.Helper()
	return accords.DecodeAgreements(Rows(t))
}

// RowSet wraps the fixture, or the given subset of it, in a published set.
func RowSet(t testing.TB, ids ...string) *accords.RowSet {
	t.Helper()

	all := Agreements(t)
	if len(ids) == 0 {
		return &accords.RowSet{Generation: 1, Rows: all}
	}
	byID := make(map[string]accords.Agreement, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	rows := make([]accords.Agreement, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			t.Fatalf("fixture has no record %s", id)
		}
		rows = append(rows, a)
	}
	return &accords.RowSet{Generation: 1, Rows: rows}
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenStore opens an in-memory engine with the fixture loaded into the
// default table. The store is closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()

	s := OpenEmptyStore(t)
	if _, err := s.LoadLocalText(context.Background(), accords.DefaultTable, agreementsJSONL); err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	return s
}

// OpenEmptyStore opens an in-memory engine with no table loaded.
func OpenEmptyStore(t testing.TB) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), store.Options{
		CacheDir: t.TempDir(),
		Logger:   Logger(),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// IDs lists the record IDs in order.
func IDs(rows []accords.Agreement) []string {
	ids := make([]string, len(rows))
	for i, a := range rows {
		ids[i] = a.ID
	}
	return ids
}
