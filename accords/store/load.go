package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/query"
)

// maxLineBytes bounds one JSONL record.
const maxLineBytes = 16 << 20

// LoadRemote materializes a parquet source into table, replacing any table
// of that name in one statement: when it fails, the previous table is left
// as it was.
func (s *Store) LoadRemote(ctx context.Context, table, source string) (ParquetInfo, error) {
	if !query.ValidIdentifier(table) {
		return ParquetInfo{}, &accords.LoadError{Table: table, Source: source, Underlying: fmt.Errorf("invalid table name %q", table)}
	}

	start := time.Now()
	path, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return ParquetInfo{}, &accords.LoadError{Table: table, Source: source, Underlying: err}
	}

	info, err := ProbeParquet(path)
	if err != nil {
		return ParquetInfo{}, &accords.LoadError{Table: table, Source: source, Underlying: err}
	}
	if missing := info.Missing(accords.ColID, accords.ColSector); len(missing) > 0 {
		s.logger.Warn("dataset lacks expected columns", "source", source, "missing", missing)
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)", table, query.QuoteLiteral(path))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return ParquetInfo{}, &accords.LoadError{Table: table, Source: source, Underlying: err}
	}

	s.logger.Info("table loaded",
		"table", table,
		"source", source,
		"rows", humanize.Comma(info.Rows),
		"columns", len(info.Columns),
		"duration", time.Since(start).String())
	return info, nil
}

// LoadLocalText materializes line-delimited JSON content into table with
// schema inference, replacing any table of that name. Every non-blank line
// must be a JSON object; the first one that is not is reported with its
// line number and the existing table is not touched.
func (s *Store) LoadLocalText(ctx context.Context, table, content string) (int64, error) {
	if !query.ValidIdentifier(table) {
		return 0, &accords.ParseError{Table: table, Underlying: fmt.Errorf("invalid table name %q", table)}
	}

	records, err := ValidateJSONL(content)
	if err != nil {
		var perr *accords.ParseError
		if errors.As(err, &perr) {
			perr.Table = table
		}
		return 0, err
	}

	tmp, err := os.CreateTemp("", "accords-*.jsonl")
	if err != nil {
		return 0, fmt.Errorf("failed to spool content: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	_, err = tmp.WriteString(content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to spool content: %w", err)
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_json_auto(%s, format='newline_delimited')",
		table, query.QuoteLiteral(tmpName))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return 0, &accords.ParseError{Table: table, Underlying: err}
	}

	s.logger.Info("local table loaded",
		"table", table,
		"records", humanize.Comma(records),
		"size", humanize.Bytes(uint64(len(content))))
	return records, nil
}

// ValidateJSONL checks that every non-blank line is a JSON object and
// returns the number of records.
func ValidateJSONL(content string) (int64, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var records int64
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if !jsoniter.Valid([]byte(raw)) {
			return 0, &accords.ParseError{Line: line, Underlying: errors.New("invalid JSON")}
		}
		if jsoniter.Get([]byte(raw)).ValueType() != jsoniter.ObjectValue {
			return 0, &accords.ParseError{Line: line, Underlying: errors.New("record is not a JSON object")}
		}
		records++
	}
	if err := scanner.Err(); err != nil {
		return 0, &accords.ParseError{Line: line + 1, Underlying: err}
	}
	if records == 0 {
		return 0, &accords.ParseError{Underlying: errors.New("no records")}
	}
	return records, nil
}
