package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/arthur-debert/accords/accords"
)

func TestValidateJSONL(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     int64
		wantLine int
		wantErr  string
	}{
		{name: "single record", content: `{"ID":"1"}`, want: 1},
		{name: "blank lines ignored", content: "{\"ID\":\"1\"}\n\n  \n{\"ID\":\"2\"}\n", want: 2},
		{name: "windows line endings", content: "{\"ID\":\"1\"}\r\n{\"ID\":\"2\"}\r\n", want: 2},
		{name: "broken second line", content: "{\"ID\":\"1\"}\n{\"ID\":", wantLine: 2, wantErr: "invalid JSON"},
		{name: "array record", content: "{\"ID\":\"1\"}\n\n[1,2]\n", wantLine: 3, wantErr: "not a JSON object"},
		{name: "scalar record", content: `"hello"`, wantLine: 1, wantErr: "not a JSON object"},
		{name: "empty content", content: "", wantErr: "no records"},
		{name: "only whitespace", content: "\n \n", wantErr: "no records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateJSONL(tt.content)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("expected %d records, got %d", tt.want, got)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			var perr *accords.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %T", err)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("expected line %d, got %d", tt.wantLine, perr.Line)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
