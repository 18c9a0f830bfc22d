package jobquery

import (
	"context"
	"sync"
	"time"

	"github.com/celestiaorg/jobdesk/internal/events"
	"github.com/celestiaorg/jobdesk/internal/logger"
	"github.com/celestiaorg/jobdesk/internal/metrics"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// DefaultDebounce is the quiet interval before typed search text is committed
const DefaultDebounce = 300 * time.Millisecond

// Lister fetches one page of jobs
type Lister interface {
	ListJobs(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error)
}

// State is the lifecycle state of the published result
type State string

const (
	// StateLoading means a fetch for Result.Query is outstanding
	StateLoading State = "loading"
	// StateReady means Result.Page belongs to Result.Query
	StateReady State = "ready"
	// StateFailed means the fetch for Result.Query failed
	StateFailed State = "failed"
)

// Page is one successfully fetched page of jobs. It is never mutated after
// it has been published.
type Page struct {
	Items    []types.JobListItem
	Total    int
	HasNext  bool
	PageSize int
}

// PageCount returns the number of pages the total spans
func (p *Page) PageCount() int {
	return PageCount(p.Total, p.PageSize)
}

// Result is the observable state of the controller. Page always holds the
// last successful page, which may belong to an earlier query while a fetch
// is loading or after it failed.
type Result struct {
	State State
	Query Query
	Page  *Page
	Err   error
	Seq   uint64
}

// PageCount returns the page count of the last successful page, or one
func (r Result) PageCount() int {
	if r.Page == nil {
		return 1
	}
	return r.Page.PageCount()
}

// Option configures a Controller
type Option func(*Controller)

// WithDebounce sets the search debounce interval. Zero commits immediately.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithClock replaces the wall clock used for debouncing
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithPageSize sets the number of jobs per page
func WithPageSize(size int) Option {
	return func(c *Controller) {
		c.effective = NewQuery(size)
	}
}

// WithEvents publishes commits and results on bus
func WithEvents(bus *events.Bus) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// WithMetrics records fetch counters on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Controller) {
		c.metrics = collector
	}
}

// WithOnResult calls fn with every result that settles as ready or failed.
// fn runs on the fetch goroutine after the result is published, so it may
// call back into the controller. Calls for different fetches can overlap
// or arrive out of order; compare Result.Seq to discard older ones.
func WithOnResult(fn func(Result)) Option {
	return func(c *Controller) {
		c.onResult = fn
	}
}

// Controller coordinates job list fetches. All methods are safe for
// concurrent use and never block on the backend.
type Controller struct {
	lister   Lister
	clock    Clock
	debounce time.Duration
	bus      *events.Bus
	metrics  *metrics.Collector
	onResult func(Result)

	mu        sync.Mutex
	ctx       context.Context
	rawText   string
	timer     Timer
	timerGen  uint64
	effective Query
	result    Result
	seq       uint64
	started   bool
	closed    bool
}

// NewController creates a controller. No fetch is issued until Start.
func NewController(lister Lister, opts ...Option) *Controller {
	c := &Controller{
		lister:    lister,
		clock:     realClock{},
		debounce:  DefaultDebounce,
		effective: NewQuery(DefaultPageSize),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.result = Result{State: StateLoading, Query: c.effective}
	return c
}

// Start issues the fetch for the initial effective query. Remote calls
// inherit ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.ctx = ctx
	c.issueLocked()
}

// Close stops the debounce timer. Completions arriving afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

// CurrentResult returns the latest published result
func (c *Controller) CurrentResult() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Query returns the current effective query
func (c *Controller) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effective
}

// RawText returns the search text as typed, before debouncing
func (c *Controller) RawText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawText
}

// SetSearchText records typed text and restarts the debounce timer. Only the
// text present when the timer fires becomes the search token.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.rawText = text
	c.stopTimerLocked()

	if c.debounce <= 0 {
		c.dispatchLocked(action{kind: actionCommitSearch, text: text})
		return
	}

	gen := c.timerGen
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.commitSearch(gen)
	})
}

// SetStatusFilter changes the status filter and resets to page one
func (c *Controller) SetStatusFilter(f StatusFilter) {
	c.dispatch(action{kind: actionSetStatus, status: f})
}

// SetPage moves to page n. Values below one are clamped to one.
func (c *Controller) SetPage(n int) {
	c.dispatch(action{kind: actionSetPage, page: n})
}

// NextPage moves forward when the page of the effective query has loaded
// and reported more results. It does nothing while a fetch is outstanding.
func (c *Controller) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result.State != StateReady || c.result.Page == nil || !c.result.Page.HasNext {
		return
	}
	c.dispatchLocked(action{kind: actionSetPage, page: c.effective.Page + 1})
}

// PrevPage moves back one page, stopping at the first
func (c *Controller) PrevPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(action{kind: actionSetPage, page: c.effective.Page - 1})
}

// ClearFilters clears the search text and status filter in one step
func (c *Controller) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.rawText = ""
	c.stopTimerLocked()
	c.dispatchLocked(action{kind: actionClear})
}

// Flush commits pending search text without waiting for the debounce timer
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer == nil {
		return
	}
	c.stopTimerLocked()
	c.metrics.RecordSearchCommit()
	c.dispatchLocked(action{kind: actionCommitSearch, text: c.rawText})
}

// Refresh re-issues the current effective query
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.started {
		return
	}
	c.issueLocked()
}

func (c *Controller) commitSearch(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A timer stopped after it already fired still runs; its generation is stale
	if c.closed || gen != c.timerGen {
		return
	}
	c.timer = nil
	c.metrics.RecordSearchCommit()
	c.dispatchLocked(action{kind: actionCommitSearch, text: c.rawText})
}

func (c *Controller) dispatch(a action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(a)
}

func (c *Controller) dispatchLocked(a action) {
	if c.closed {
		return
	}
	next := reduce(c.effective, a)
	if next.Equivalent(c.effective) {
		return
	}
	c.effective = next
	if !c.started {
		c.result.Query = next
		return
	}
	c.issueLocked()
}

func (c *Controller) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// issueLocked starts a fetch for the effective query. The remote call runs
// outside the lock.
func (c *Controller) issueLocked() {
	c.seq++
	seq := c.seq
	query := c.effective

	c.result = Result{
		State: StateLoading,
		Query: query,
		Page:  c.result.Page,
		Seq:   seq,
	}

	logger.DebugWithFields("Issuing job fetch", map[string]interface{}{
		"seq":    seq,
		"search": query.SearchText,
		"status": query.Status,
		"page":   query.Page,
	})
	c.metrics.RecordFetchIssued()
	c.bus.Publish(events.Event{Type: events.EventQueryCommitted, Seq: seq})

	go c.fetch(c.ctx, seq, query)
}

func (c *Controller) fetch(ctx context.Context, seq uint64, query Query) {
	resp, err := c.lister.ListJobs(ctx, query.Params())
	c.complete(seq, query, resp, err)
}

func (c *Controller) complete(seq uint64, query Query, resp *types.ListJobsResponse, err error) {
	result, ok := c.settle(seq, query, resp, err)
	if ok && c.onResult != nil {
		c.onResult(result)
	}
}

// settle publishes the outcome of fetch seq unless it is stale
func (c *Controller) settle(seq uint64, query Query, resp *types.ListJobsResponse, err error) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq {
		logger.Debugf("Dropping stale job fetch %d (latest %d)", seq, c.seq)
		c.metrics.RecordFetchStale()
		return Result{}, false
	}

	if err != nil {
		logger.Errorf("Job fetch %d failed: %v", seq, err)
		c.metrics.RecordFetchFailed()
		c.result = Result{
			State: StateFailed,
			Query: query,
			Page:  c.result.Page,
			Err:   err,
			Seq:   seq,
		}
		c.bus.Publish(events.Event{Type: events.EventFetchFailed, Seq: seq, Err: err})
		return c.result, true
	}

	page := &Page{PageSize: query.PageSize}
	if resp != nil {
		page.Items = resp.Jobs
		page.Total = resp.Total
		page.HasNext = resp.HasNext
	}
	c.result = Result{
		State: StateReady,
		Query: query,
		Page:  page,
		Seq:   seq,
	}
	c.bus.Publish(events.Event{Type: events.EventPageLoaded, Seq: seq})
	return c.result, true
}
