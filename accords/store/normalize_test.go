package store

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	day := time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)
	var nilTime *time.Time
	var nilBig *big.Int

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"date", day, "2024-02-03"},
		{"date pointer", &day, "2024-02-03"},
		{"nil date pointer", nilTime, nil},
		{"int64", int64(9007199254740993), "9007199254740993"},
		{"uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"big int", big.NewInt(42), "42"},
		{"nil big int", nilBig, nil},
		{"bytes", []byte("abc"), "abc"},
		{"int32 unchanged", int32(7), int32(7)},
		{"float unchanged", 48.85, 48.85},
		{"string unchanged", "Paris", "Paris"},
		{"nil", nil, nil},
		{"list", []interface{}{int64(1), day, "x"}, []interface{}{"1", "2024-02-03", "x"}},
		{"struct", map[string]interface{}{"n": int64(2), "d": day}, map[string]interface{}{"n": "2", "d": "2024-02-03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeConvertsToUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	late := time.Date(2024, time.March, 1, 0, 30, 0, 0, paris)

	if got := Normalize(late); got != "2024-02-29" {
		t.Errorf("expected UTC date 2024-02-29, got %v", got)
	}
}
