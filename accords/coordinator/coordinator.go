// Package coordinator turns a stream of filter edits into at most one
// engine query per quiet period, and publishes only the response to the
// latest query issued.
//
// Every Update restarts the debounce timer. When it fires, the request
// sequence is incremented and the query runs in its own goroutine. A
// response whose sequence is no longer the latest is dropped, so results
// never regress to an older filter state even when the engine answers out
// of order.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/metrics"
)

// DefaultDelay is the quiet period after the last edit before a query runs.
const DefaultDelay = 300 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("coordinator closed")

// Status is where the coordinator is in its cycle.
type Status int

const (
	Idle Status = iota
	Debouncing
	Querying
	Applied
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Querying:
		return "querying"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Executor runs a statement with bound arguments.
type Executor interface {
	Query(ctx context.Context, stmt string, args ...interface{}) ([]accords.Row, error)
}

// Planner turns a filter state into a statement. *query.Composer is one.
type Planner interface {
	Select(s filter.State) (string, []interface{}, error)
	Render(s filter.State) (string, error)
}

// Listener receives every published RowSet, in publication order.
type Listener func(*accords.RowSet)

// Options configures a Coordinator.
type Options struct {
	Delay   time.Duration
	Clock   Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Coordinator debounces filter updates and applies query responses in
// sequence order.
type Coordinator struct {
	exec    Executor
	planner Planner
	delay   time.Duration
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	status    Status
	pending   filter.State
	timer     Timer
	timerGen  uint64
	seq       uint64
	current   *accords.RowSet
	listeners []Listener
	settled   chan struct{}
	closed    bool

	// notifyMu serializes listener calls; delivered is the newest
	// generation handed to listeners.
	notifyMu  sync.Mutex
	delivered uint64
}

// New creates an idle coordinator with no published result.
func New(exec Executor, planner Planner, opts Options) *Coordinator {
	c := &Coordinator{
		exec:    exec,
		planner: planner,
		delay:   opts.Delay,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		settled: make(chan struct{}),
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	close(c.settled)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// OnPublish registers a listener.
func (c *Coordinator) OnPublish(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Update records a new filter state and restarts the quiet period.
func (c *Coordinator) Update(s filter.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.pending = s.Clone()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
	c.status = Debouncing
	c.unsettle()
}

// Run executes s immediately, bypassing the quiet period, and returns the
// published set. A pending debounced update is discarded.
func (c *Coordinator) Run(ctx context.Context, s filter.State) (*accords.RowSet, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	c.pending = s.Clone()
	id := c.issue()
	c.mu.Unlock()

	c.metrics.QueryIssued()
	rs := c.execute(ctx, id, s)
	return rs, rs.Err
}

// Current returns the latest published set, or nil before the first one.
func (c *Coordinator) Current() *accords.RowSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Status returns the current phase.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Pending returns the last state passed to Update or Run.
func (c *Coordinator) Pending() filter.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Clone()
}

// Settled blocks until no timer is pending and the latest issued query has
// been applied or has failed.
func (c *Coordinator) Settled(ctx context.Context) error {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the timer, cancels in-flight queries and waits for their
// goroutines. Later updates are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	c.settle()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	s := c.pending.Clone()
	id := c.issue()
	c.wg.Add(1)
	c.mu.Unlock()

	c.metrics.QueryIssued()
	go func() {
		defer c.wg.Done()
		c.execute(c.ctx, id, s)
	}()
}

// issue must be called with mu held.
func (c *Coordinator) issue() uint64 {
	c.seq++
	c.status = Querying
	c.unsettle()
	return c.seq
}

func (c *Coordinator) execute(ctx context.Context, id uint64, s filter.State) *accords.RowSet {
	start := time.Now()

	predicate, err := c.planner.Render(s)
	if err != nil {
		predicate = ""
	}

	var rows []accords.Row
	stmt, args, err := c.planner.Select(s)
	if err == nil {
		c.logger.Debug("running filter query", "generation", id, "predicate", predicate)
		rows, err = c.exec.Query(ctx, stmt, args...)
	}

	rs := &accords.RowSet{Generation: id, Predicate: predicate, Err: err}
	if err == nil {
		rs.Rows = accords.DecodeAgreements(rows)
	} else {
		rs.Rows = []accords.Agreement{}
	}
	c.complete(rs, time.Since(start))
	return rs
}

func (c *Coordinator) complete(rs *accords.RowSet, took time.Duration) {
	c.mu.Lock()
	if rs.Generation != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.metrics.QueryStale()
		c.logger.Debug("dropping stale response", "generation", rs.Generation, "latest", latest)
		return
	}
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.current = rs
	if c.timer == nil {
		if rs.Err != nil {
			c.status = Failed
		} else {
			c.status = Applied
		}
	}
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if rs.Generation < c.delivered {
		// a newer set was delivered while this one waited
		return
	}
	c.delivered = rs.Generation
	// waiters on Settled observe the listeners' effects
	defer c.settleIfLatest(rs.Generation)

	if rs.Err != nil {
		c.metrics.QueryFailed(took)
		c.logger.Error("filter query failed", "generation", rs.Generation, "predicate", rs.Predicate, "error", rs.Err)
	} else {
		c.metrics.QueryApplied(took, len(rs.Rows))
		c.logger.Debug("filter results applied", "generation", rs.Generation, "rows", len(rs.Rows), "duration", took.String())
	}
	for _, l := range listeners {
		l(rs)
	}
}

func (c *Coordinator) settleIfLatest(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.seq && c.timer == nil {
		c.settle()
	}
}

// unsettle and settle must be called with mu held.
func (c *Coordinator) unsettle() {
	select {
	case <-c.settled:
		c.settled = make(chan struct{})
	default:
	}
}

func (c *Coordinator) settle() {
	select {
	case <-c.settled:
	default:
		close(c.settled)
	}
}
