package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/session"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "load", "query")
	Cause       string   // The underlying cause (e.g., "dataset not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for invalid flag values
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// WrapError wraps an explorer error with CLI-friendly context, picking the
// cause and suggestions from the error type.
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	out := &CLIError{
		Operation:  operation,
		Cause:      "explorer operation failed",
		Details:    err.Error(),
		Underlying: err,
	}

	var (
		initErr  *accords.InitializationError
		loadErr  *accords.LoadError
		parseErr *accords.ParseError
		queryErr *accords.QueryError
	)
	switch {
	case errors.As(err, &initErr):
		out.Cause = "the analytic engine could not start"
		out.Suggestions = append(out.Suggestions, CommonSuggestions.CheckCacheDir)
	case errors.As(err, &parseErr):
		out.Cause = "the file is not valid line-delimited JSON"
		if parseErr.Line > 0 {
			out.Cause = fmt.Sprintf("line %d is not a valid JSON object", parseErr.Line)
		}
		out.Suggestions = append(out.Suggestions, CommonSuggestions.CheckJSONL)
	case errors.As(err, &loadErr):
		out.Cause = "the dataset could not be loaded"
		out.Suggestions = append(out.Suggestions, CommonSuggestions.CheckDataset, CommonSuggestions.TryRefresh)
	case errors.As(err, &queryErr):
		out.Cause = "the engine rejected the query"
		out.Suggestions = append(out.Suggestions, CommonSuggestions.TryExplain)
	case errors.Is(err, page.ErrPageOutOfRange):
		out.Cause = "page out of range"
		out.Suggestions = append(out.Suggestions, CommonSuggestions.CheckPage)
	case errors.Is(err, session.ErrNotLoaded):
		out.Cause = "no dataset loaded"
		out.Suggestions = append(out.Suggestions, CommonSuggestions.CheckDataset)
	}
	out.Suggestions = append(out.Suggestions, suggestions...)
	return out
}

// Common error messages and suggestions
var (
	CommonSuggestions = struct {
		CheckDataset  string
		CheckJSONL    string
		CheckCacheDir string
		CheckPage     string
		CheckConfig   string
		TryRefresh    string
		TryExplain    string
		RunHelp       string
	}{
		CheckDataset:  "Verify --dataset points to a reachable parquet file or URL",
		CheckJSONL:    "Check that --jsonl names a file with one JSON object per line",
		CheckCacheDir: "Check that --cache-dir is writable",
		CheckPage:     "Use a smaller --page or raise --page-size",
		CheckConfig:   "Check your configuration file or ACCORDS_* environment variables",
		TryRefresh:    "Use --refresh to download the dataset again",
		TryExplain:    "Run 'accords explain' with the same filters to see the predicate",
		RunHelp:       "Run command with --help for usage information",
	}
)
