package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/session"
)

func TestCLIErrorMessage(t *testing.T) {
	err := &CLIError{
		Operation:   "load the dataset",
		Cause:       "the dataset could not be loaded",
		Details:     "404",
		Suggestions: []string{"first", "second"},
	}
	want := "Failed to load the dataset: the dataset could not be loaded (404)\n\nSuggestions:\n  1. first\n  2. second"
	if got := err.Error(); got != want {
		t.Errorf("unexpected message:\n%s\nwant:\n%s", got, want)
	}

	if got := (&CLIError{}).Error(); got != "Operation failed" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError("query", nil) != nil {
		t.Error("expected nil for nil error")
	}

	tests := []struct {
		name       string
		err        error
		cause      string
		suggestion string
	}{
		{"init", &accords.InitializationError{Engine: "duckdb", Underlying: errors.New("boom")}, "the analytic engine could not start", CommonSuggestions.CheckCacheDir},
		{"load", &accords.LoadError{Table: "t", Source: "s", Underlying: errors.New("404")}, "the dataset could not be loaded", CommonSuggestions.TryRefresh},
		{"parse", &accords.ParseError{Line: 3, Underlying: errors.New("bad")}, "line 3 is not a valid JSON object", CommonSuggestions.CheckJSONL},
		{"parse whole", &accords.ParseError{Underlying: errors.New("no records")}, "the file is not valid line-delimited JSON", CommonSuggestions.CheckJSONL},
		{"query", fmt.Errorf("run: %w", &accords.QueryError{SQL: "x", Underlying: errors.New("bad")}), "the engine rejected the query", CommonSuggestions.TryExplain},
		{"page", fmt.Errorf("%w: page 9 of 1", page.ErrPageOutOfRange), "page out of range", CommonSuggestions.CheckPage},
		{"not loaded", session.ErrNotLoaded, "no dataset loaded", CommonSuggestions.CheckDataset},
		{"other", errors.New("disk full"), "explorer operation failed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapError("query", tt.err)
			var cliErr *CLIError
			if !errors.As(err, &cliErr) {
				t.Fatalf("expected CLIError, got %T", err)
			}
			if cliErr.Cause != tt.cause {
				t.Errorf("expected cause %q, got %q", tt.cause, cliErr.Cause)
			}
			if tt.suggestion != "" && !strings.Contains(cliErr.Error(), tt.suggestion) {
				t.Errorf("expected suggestion %q in %q", tt.suggestion, cliErr.Error())
			}
			if !errors.Is(err, tt.err) {
				t.Error("expected the original error in the chain")
			}
		})
	}
}

func TestWrapErrorKeepsCLIError(t *testing.T) {
	orig := NewValidationError("", "format", "xml")
	err := WrapError("query", orig)
	if err != orig {
		t.Fatalf("expected the same CLIError back")
	}
	if orig.Operation != "query" {
		t.Errorf("expected operation to be filled, got %q", orig.Operation)
	}
}
