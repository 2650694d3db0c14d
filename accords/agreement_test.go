package accords

import "testing"

func TestIsMobilityFlag(t *testing.T) {
	tests := []struct {
		flag string
		want bool
	}{
		{"true", true},
		{"oui", true},
		{"1", true},
		{"1.0", true},
		{" TRUE ", true},
		{"01", true},
		{"false", false},
		{"0", false},
		{"0.0", false},
		{"1.5", false},
		{"non", false},
		{"0x1p0", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMobilityFlag(tt.flag); got != tt.want {
			t.Errorf("IsMobilityFlag(%q) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}

func TestDecodeNumericMobilityFlag(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"DoubleOne", Row{ColMobilityLegacy: 1.0}, true},
		{"DoubleZero", Row{ColMobilityLegacy: 0.0}, false},
		{"DoubleFraction", Row{ColMobilityLegacy: 1.5}, false},
		{"V2WinsOverLegacy", Row{ColMobility: "false", ColMobilityLegacy: 1.0}, false},
		{"BlankV2FallsBack", Row{ColMobility: "  ", ColMobilityLegacy: "oui"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeAgreement(tt.row).IsMobility(); got != tt.want {
				t.Errorf("IsMobility() = %v, want %v", got, tt.want)
			}
		})
	}
}
