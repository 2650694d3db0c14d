// Package store owns the embedded DuckDB engine: it loads the agreements
// dataset into a named table and runs read-only queries against it.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/query"
)

//go:embed sql/distinct_sectors.sql
var distinctSectorsSQL string

//go:embed sql/location_options.sql
var locationOptionsSQL string

//go:embed sql/table_columns.sql
var tableColumnsSQL string

// Options configures a Store.
type Options struct {
	// Path is the DuckDB database path; empty means in-memory.
	Path string
	// Threads caps DuckDB worker threads; zero keeps the engine default.
	Threads int
	// CacheDir holds downloaded dataset files.
	CacheDir string
	// Refresh forces remote files to be downloaded again.
	Refresh bool
	Logger  *slog.Logger
	// QueryLogger, when set, receives every statement sent to the engine.
	QueryLogger *slog.Logger
	Fetcher     *Fetcher
}

// Store wraps one DuckDB database and its single connection.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	queries *slog.Logger
	fetcher *Fetcher
}

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// Initialize returns the process-wide store, opening it on first use.
// Later calls return the existing handle and ignore opts.
func Initialize(ctx context.Context, opts Options) (*Store, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultStore != nil {
		return defaultStore, nil
	}
	s, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	defaultStore = s
	return s, nil
}

// Shutdown closes the process-wide store. Initialize may be called again
// afterwards.
func Shutdown() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultStore == nil {
		return nil
	}
	err := defaultStore.Close()
	defaultStore = nil
	return err
}

// Open creates a store that is not shared through Initialize.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, &accords.InitializationError{Engine: "duckdb", Underlying: err}
	}

	// Session settings do not propagate across pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &accords.InitializationError{Engine: "duckdb", Underlying: err}
	}

	if opts.Threads > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET threads = %d", opts.Threads)); err != nil {
			_ = db.Close()
			return nil, &accords.InitializationError{Engine: "duckdb", Underlying: fmt.Errorf("set threads: %w", err)}
		}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(FetcherOptions{CacheDir: opts.CacheDir, Refresh: opts.Refresh, Logger: logger})
	}

	logger.Debug("duckdb ready", "path", opts.Path, "threads", opts.Threads)
	return &Store{db: db, logger: logger, queries: opts.QueryLogger, fetcher: fetcher}, nil
}

// Close releases the engine.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query runs a read-only statement and returns normalized rows in result
// order.
func (s *Store) Query(ctx context.Context, stmt string, args ...interface{}) ([]accords.Row, error) {
	if s.queries != nil {
		s.queries.Info("sql_query", "sql", stmt, "args", args)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &accords.QueryError{SQL: stmt, Underlying: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &accords.QueryError{SQL: stmt, Underlying: err}
	}

	var out []accords.Row
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &accords.QueryError{SQL: stmt, Underlying: err}
		}
		row := make(accords.Row, len(cols))
		for i, col := range cols {
			row[col] = Normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &accords.QueryError{SQL: stmt, Underlying: err}
	}
	return out, nil
}

// Columns returns the column names of table in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.Query(ctx, tableColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["column_name"].(string); ok {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

// RowCount returns the number of rows in table.
func (s *Store) RowCount(ctx context.Context, table string) (int64, error) {
	if !query.ValidIdentifier(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	stmt := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", table)
	var n int64
	if err := s.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, &accords.QueryError{SQL: stmt, Underlying: err}
	}
	return n, nil
}

// Sectors returns the distinct non-empty sector labels, sorted.
func (s *Store) Sectors(ctx context.Context, table string) ([]string, error) {
	stmt, err := forTable(distinctSectorsSQL, table)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	sectors := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row["name"].(string); ok && v != "" {
			sectors = append(sectors, v)
		}
	}
	return sectors, nil
}

// LocationOptions returns the union of distinct regions, EPCIs and
// communes, ordered by name. The same name may appear once per granularity.
func (s *Store) LocationOptions(ctx context.Context, table string) ([]filter.Location, error) {
	stmt, err := forTable(locationOptionsSQL, table)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	opts := make([]filter.Location, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		typ, _ := row["type"].(string)
		if name == "" {
			continue
		}
		opts = append(opts, filter.Location{Name: name, Granularity: filter.Granularity(typ)})
	}
	return opts, nil
}

func forTable(template, table string) (string, error) {
	if !query.ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return strings.ReplaceAll(template, "{{table}}", table), nil
}
