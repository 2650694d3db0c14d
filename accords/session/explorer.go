// Package session ties the engine, the query coordinator and the derived
// views together. An Explorer owns the loaded dataset and the shared option
// lists; each Session holds one user's filters, results and page.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/coordinator"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/metrics"
	"github.com/arthur-debert/accords/accords/query"
	"github.com/arthur-debert/accords/accords/store"
)

// Defaults for Options.
const (
	DefaultMaxSessions = 256
	DefaultSessionTTL  = 2 * time.Hour
)

// ErrNotLoaded is returned when a session is requested before any dataset
// has been loaded.
var ErrNotLoaded = errors.New("no dataset loaded")

// Engine is the part of the store an Explorer needs. *store.Store
// implements it.
type Engine interface {
	coordinator.Executor
	LoadRemote(ctx context.Context, table, source string) (store.ParquetInfo, error)
	LoadLocalText(ctx context.Context, table, content string) (int64, error)
	Columns(ctx context.Context, table string) ([]string, error)
	Sectors(ctx context.Context, table string) ([]string, error)
	LocationOptions(ctx context.Context, table string) ([]filter.Location, error)
}

// Options configures an Explorer.
type Options struct {
	// Table receives every load; it defaults to accords.DefaultTable.
	Table       string
	PageSize    int
	MaxSessions int
	SessionTTL  time.Duration
	// Delay and Clock are handed to every session's coordinator.
	Delay   time.Duration
	Clock   coordinator.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Dataset describes the table currently loaded.
type Dataset struct {
	Kind     string    `json:"kind"`
	Source   string    `json:"source"`
	Records  int64     `json:"records"`
	Columns  []string  `json:"columns"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Explorer owns the loaded table and the sessions browsing it.
type Explorer struct {
	engine  Engine
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	// loadMu serializes loads; mu guards the fields below it.
	loadMu    sync.Mutex
	mu        sync.RWMutex
	composer  *query.Composer
	sectors   []string
	locations []filter.Location
	dataset   *Dataset

	sessions *expirable.LRU[string, *Session]
}

// NewExplorer creates an explorer with no dataset loaded.
func NewExplorer(engine Engine, opts Options) *Explorer {
	if opts.Table == "" {
		opts.Table = accords.DefaultTable
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Explorer{
		engine:   engine,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		composer: query.New(opts.Table),
	}
	e.sessions = expirable.NewLRU[string, *Session](opts.MaxSessions, e.evicted, opts.SessionTTL)
	return e
}

// Table returns the table the explorer loads into.
func (e *Explorer) Table() string {
	return e.opts.Table
}

// LoadRemote replaces the table with a parquet source. Sessions keep their
// filters and are re-queried against the new data.
func (e *Explorer) LoadRemote(ctx context.Context, source string) (Dataset, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	start := time.Now()
	info, err := e.engine.LoadRemote(ctx, e.opts.Table, source)
	if err == nil {
		err = e.refresh(ctx, Dataset{Kind: metrics.LoadRemote, Source: source, Records: info.Rows})
	}
	e.metrics.Load(metrics.LoadRemote, time.Since(start), err)
	if err != nil {
		e.logger.Error("remote load failed", "source", source, "error", err)
		return Dataset{}, err
	}

	for _, s := range e.sessions.Values() {
		s.requery()
	}
	return e.Dataset()
}

// LoadLocal replaces the table with line-delimited JSON content and resets
// every session's filters. When the content is rejected the previous table
// and filters stay. When the table was replaced but its columns or option
// lists could not be read, the error is returned, filters stay, and the
// explorer keeps describing the previous load until the next successful one.
func (e *Explorer) LoadLocal(ctx context.Context, name, content string) (Dataset, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	start := time.Now()
	n, err := e.engine.LoadLocalText(ctx, e.opts.Table, content)
	if err == nil {
		err = e.refresh(ctx, Dataset{Kind: metrics.LoadLocal, Source: name, Records: n})
	}
	e.metrics.Load(metrics.LoadLocal, time.Since(start), err)
	if err != nil {
		e.logger.Error("local import failed", "name", name, "error", err)
		return Dataset{}, err
	}

	for _, s := range e.sessions.Values() {
		s.Reset()
	}
	return e.Dataset()
}

// refresh reads the new schema and option lists. Called with loadMu held.
func (e *Explorer) refresh(ctx context.Context, ds Dataset) error {
	table := e.opts.Table

	cols, err := e.engine.Columns(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	var sectors []string
	if hasColumn(cols, accords.ColSector) {
		if sectors, err = e.engine.Sectors(ctx, table); err != nil {
			return fmt.Errorf("failed to read sectors: %w", err)
		}
	}

	var locations []filter.Location
	if hasColumn(cols, accords.ColRegion) && hasColumn(cols, accords.ColEPCI) && hasColumn(cols, accords.ColCommune) {
		if locations, err = e.engine.LocationOptions(ctx, table); err != nil {
			return fmt.Errorf("failed to read locations: %w", err)
		}
	} else {
		e.logger.Warn("dataset has no geographic columns", "table", table)
	}

	ds.Columns = cols
	ds.LoadedAt = time.Now()

	e.mu.Lock()
	e.composer = query.New(table, query.WithSchema(cols))
	e.sectors = sectors
	e.locations = locations
	e.dataset = &ds
	e.mu.Unlock()

	e.logger.Info("dataset ready",
		"kind", ds.Kind,
		"source", ds.Source,
		"records", ds.Records,
		"sectors", len(sectors),
		"locations", len(locations))
	return nil
}

// Dataset returns the loaded dataset, or ErrNotLoaded.
func (e *Explorer) Dataset() (Dataset, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.dataset == nil {
		return Dataset{}, ErrNotLoaded
	}
	return *e.dataset, nil
}

// Sectors returns the distinct sectors of the loaded table.
func (e *Explorer) Sectors() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.sectors...)
}

// LocationOptions returns the selectable places of the loaded table.
func (e *Explorer) LocationOptions() []filter.Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]filter.Location(nil), e.locations...)
}

// Select and Render make the explorer a coordinator.Planner that always
// composes against the current schema.
func (e *Explorer) Select(s filter.State) (string, []interface{}, error) {
	return e.currentComposer().Select(s)
}

func (e *Explorer) Render(s filter.State) (string, error) {
	return e.currentComposer().Render(s)
}

func (e *Explorer) currentComposer() *query.Composer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.composer
}

// NewSession opens a session with empty filters and schedules its first
// query.
func (e *Explorer) NewSession() (*Session, error) {
	if _, err := e.Dataset(); err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), e)
	e.sessions.Add(s.ID, s)
	e.metrics.SessionOpened()
	e.logger.Debug("session opened", "session", s.ID)

	s.requery()
	return s, nil
}

// Session returns a live session.
func (e *Explorer) Session(id string) (*Session, bool) {
	return e.sessions.Get(id)
}

// CloseSession ends a session. It reports whether the session existed.
func (e *Explorer) CloseSession(id string) bool {
	return e.sessions.Remove(id)
}

// Sessions returns the number of live sessions.
func (e *Explorer) Sessions() int {
	return e.sessions.Len()
}

// Close ends every session.
func (e *Explorer) Close() {
	e.sessions.Purge()
}

func (e *Explorer) evicted(id string, s *Session) {
	e.metrics.SessionClosed()
	e.logger.Debug("session closed", "session", id)
	// the callback runs under the registry lock
	go s.close()
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
