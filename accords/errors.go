package accords

import (
	"fmt"
	"strings"
)

// InitializationError reports that the analytic engine could not be started.
// It is fatal for the session.
type InitializationError struct {
	Engine     string
	Underlying error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s engine: %v", e.Engine, e.Underlying)
}

func (e *InitializationError) Unwrap() error {
	return e.Underlying
}

// LoadError reports that a dataset could not be fetched or materialized.
type LoadError struct {
	Table      string
	Source     string
	Underlying error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load table %s from %s: %v", e.Table, e.Source, e.Underlying)
}

func (e *LoadError) Unwrap() error {
	return e.Underlying
}

// ParseError reports malformed line-delimited JSON content. Line is 1-based
// and zero when the engine rejected the content as a whole.
type ParseError struct {
	Table      string
	Line       int
	Underlying error
}

func (e *ParseError) Error() string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("failed to parse content for table %s", e.Table))
	if e.Line > 0 {
		msg.WriteString(fmt.Sprintf(" (line %d)", e.Line))
	}
	msg.WriteString(fmt.Sprintf(": %v", e.Underlying))
	return msg.String()
}

func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// QueryError carries the statement that failed and the engine's message.
type QueryError struct {
	SQL        string
	Underlying error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Underlying)
}

func (e *QueryError) Unwrap() error {
	return e.Underlying
}
