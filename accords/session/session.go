package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/aggregate"
	"github.com/arthur-debert/accords/accords/coordinator"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/view"
)

// Session is one user's view of the dataset: filter state, the latest
// published results, the current page and the derived statistics.
type Session struct {
	ID      string
	Created time.Time

	explorer *Explorer
	coord    *coordinator.Coordinator
	memo     aggregate.Memo
	pageSize int

	mu    sync.Mutex
	state filter.State
	page  int

	// pageGen is the generation of the RowSet page refers to.
	pageGen uint64
}

func newSession(id string, e *Explorer) *Session {
	s := &Session{
		ID:       id,
		Created:  time.Now(),
		explorer: e,
		pageSize: e.opts.PageSize,
		page:     1,
	}
	if s.pageSize <= 0 {
		s.pageSize = page.DefaultSize
	}
	s.coord = coordinator.New(e.engine, e, coordinator.Options{
		Delay:   e.opts.Delay,
		Clock:   e.opts.Clock,
		Logger:  e.logger.With("session", id),
		Metrics: e.metrics,
	})
	s.coord.OnPublish(s.published)
	return s
}

// published runs for every new result set: the table goes back to its
// first page.
func (s *Session) published(rs *accords.RowSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageFor(rs)
}

// pageFor returns the page number for rs, resetting it to 1 when rs is not
// the set the page was chosen on. Called with mu held.
func (s *Session) pageFor(rs *accords.RowSet) int {
	if rs.Generation != s.pageGen {
		s.page = 1
		s.pageGen = rs.Generation
	}
	return s.page
}

// Filters returns a copy of the current filter state.
func (s *Session) Filters() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SetFilters replaces the filter state and schedules a query.
func (s *Session) SetFilters(state filter.State) {
	s.mu.Lock()
	s.state = state.Normalize()
	next := s.state.Clone()
	s.mu.Unlock()

	s.coord.Update(next)
}

// Edit applies fn to the filter state and schedules a query.
func (s *Session) Edit(fn func(*filter.State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state = s.state.Normalize()
	next := s.state.Clone()
	s.mu.Unlock()

	s.coord.Update(next)
}

// Reset clears every filter and schedules a query.
func (s *Session) Reset() {
	s.SetFilters(filter.State{})
}

// requery schedules the current filters again, after a reload.
func (s *Session) requery() {
	s.coord.Update(s.Filters())
}

// Run queries the current filters immediately.
func (s *Session) Run(ctx context.Context) (*accords.RowSet, error) {
	return s.coord.Run(ctx, s.Filters())
}

// Settled waits for pending edits to be applied.
func (s *Session) Settled(ctx context.Context) error {
	return s.coord.Settled(ctx)
}

// Loading reports whether an edit is waiting for its results.
func (s *Session) Loading() bool {
	switch s.coord.Status() {
	case coordinator.Debouncing, coordinator.Querying:
		return true
	}
	return false
}

// Results returns the latest published set; it is empty, never nil.
func (s *Session) Results() *accords.RowSet {
	if rs := s.coord.Current(); rs != nil {
		return rs
	}
	return &accords.RowSet{Rows: []accords.Agreement{}}
}

// Page returns the current page of results. A set published since the
// last page change is shown from its first page.
func (s *Session) Page() ([]accords.Agreement, page.Info, error) {
	rs := s.Results()
	s.mu.Lock()
	n := s.pageFor(rs)
	s.mu.Unlock()
	return s.window(rs.Rows, n)
}

// PageAt returns page n of the current results without moving to it.
func (s *Session) PageAt(n int) ([]accords.Agreement, page.Info, error) {
	return s.window(s.Results().Rows, n)
}

func (s *Session) window(rows []accords.Agreement, n int) ([]accords.Agreement, page.Info, error) {
	window, err := page.Slice(rows, n, s.pageSize)
	if err != nil {
		return nil, page.Describe(n, len(rows), s.pageSize), err
	}
	return window, page.Describe(n, len(rows), s.pageSize), nil
}

// SetPage moves to page n of the current results.
func (s *Session) SetPage(n int) error {
	rs := s.Results()
	if pages := page.Count(rs.Len(), s.pageSize); n < 1 || n > pages {
		return fmt.Errorf("%w: page %d of %d", page.ErrPageOutOfRange, n, pages)
	}
	s.mu.Lock()
	s.page = n
	s.pageGen = rs.Generation
	s.mu.Unlock()
	return nil
}

// Stats returns the statistics of the current results, computed once per
// published set.
func (s *Session) Stats() aggregate.Stats {
	return s.memo.Get(s.coord.Current())
}

// Map returns the marker layer of the current results.
func (s *Session) Map() view.Map {
	return view.MapPoints(s.Results().Rows)
}

// Record returns the detail view of one row of the current results.
func (s *Session) Record(id string) (view.Detail, bool) {
	a, ok := s.Results().Find(id)
	if !ok {
		return view.Detail{}, false
	}
	st := s.Filters()
	return view.Describe(a, view.HighlightTerm(st.Global, st.Measure)), true
}

// SectorSuggestions completes the sector input, leaving out selected ones.
func (s *Session) SectorSuggestions(input string) []string {
	return view.SectorSuggestions(s.explorer.Sectors(), input, s.Filters().Sectors)
}

// LocationSuggestions completes the location input, leaving out selected
// names.
func (s *Session) LocationSuggestions(input string) []filter.Location {
	return view.LocationSuggestions(s.explorer.LocationOptions(), input, s.Filters().Locations)
}

func (s *Session) close() {
	s.coord.Close()
}
