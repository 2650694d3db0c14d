package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/accords/testutil"
)

func TestWords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"forfait mobilités durables", []string{"forfait", "mobilités", "durables"}},
		{"accord relatif à la mise en place", []string{"accord"}},
		{"navettes d'entreprise", []string{"navettes", "entreprise"}},
		{"prime 2024 de 500 euros", []string{"prime", "euros"}},
		{"vélo", []string{"vélo"}},
		{"nao", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Words(tt.text)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords(testutil.Agreements(t))

	want := []Count{
		{"accord", 8},
		{"durables", 4},
		{"forfait", 4},
		{"mobilités", 4},
		{"charge", 2},
		{"covoiturage", 2},
		{"navettes", 2},
	}
	if len(got) < len(want) {
		t.Fatalf("expected at least %d keywords, got %v", len(want), got)
	}
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if len(got) > KeywordLimit {
		t.Errorf("expected at most %d keywords, got %d", KeywordLimit, len(got))
	}
}
