package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tableRenderer writes the human-readable form of a result.
type tableRenderer func(w *tabwriter.Writer) error

// OutputFormatter writes command results in the configured format
type OutputFormatter struct {
	format string
	w      io.Writer
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, w io.Writer) *OutputFormatter {
	return &OutputFormatter{format: format, w: w}
}

// Write formats data as JSON or YAML, or calls table for the table format.
func (of *OutputFormatter) Write(data interface{}, table tableRenderer) error {
	switch of.format {
	case "json":
		return of.writeJSON(data)
	case "yaml":
		return of.writeYAML(data)
	default:
		tw := tabwriter.NewWriter(of.w, 0, 0, 2, ' ', 0)
		if err := table(tw); err != nil {
			return err
		}
		return tw.Flush()
	}
}

func (of *OutputFormatter) writeJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(of.w, string(out))
	return err
}

// writeYAML goes through JSON first so the json field names apply.
func (of *OutputFormatter) writeYAML(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	enc := yaml.NewEncoder(of.w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return enc.Close()
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
