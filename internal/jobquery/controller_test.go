package jobquery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/jobdesk/internal/metrics"
	"github.com/celestiaorg/jobdesk/internal/types"
)

const waitTimeout = 2 * time.Second

// fakeClock fires timers only when advanced
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Duration
	f        func()
	stopped  bool
	fired    bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.deadline <= c.now {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

type listCall struct {
	params types.ListJobsParams
	reply  chan listReply
}

type listReply struct {
	resp *types.ListJobsResponse
	err  error
}

// blockingLister hands every call to the test, which decides when and how it completes
type blockingLister struct {
	calls chan listCall
}

func newBlockingLister() *blockingLister {
	return &blockingLister{calls: make(chan listCall, 16)}
}

func (l *blockingLister) ListJobs(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error) {
	call := listCall{params: params, reply: make(chan listReply, 1)}
	l.calls <- call
	r := <-call.reply
	return r.resp, r.err
}

func (l *blockingLister) next(t *testing.T) listCall {
	t.Helper()
	select {
	case call := <-l.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a fetch")
		return listCall{}
	}
}

func (l *blockingLister) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-l.calls:
		t.Fatalf("unexpected fetch: %+v", call.params)
	case <-time.After(50 * time.Millisecond):
	}
}

func jobsPage(n, total int, hasNext bool) *types.ListJobsResponse {
	jobs := make([]types.JobListItem, n)
	for i := range jobs {
		jobs[i] = types.JobListItem{ID: uint(i + 1), JobTitle: fmt.Sprintf("job %d", i+1)}
	}
	return &types.ListJobsResponse{Jobs: jobs, Total: total, HasNext: hasNext}
}

func waitForState(t *testing.T, c *Controller, seq uint64, state State) Result {
	t.Helper()
	require.Eventually(t, func() bool {
		r := c.CurrentResult()
		return r.Seq == seq && r.State == state
	}, waitTimeout, 5*time.Millisecond)
	return c.CurrentResult()
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *blockingLister, *fakeClock) {
	t.Helper()
	lister := newBlockingLister()
	clock := &fakeClock{}
	c := NewController(lister, append([]Option{WithClock(clock)}, opts...)...)
	t.Cleanup(c.Close)
	return c, lister, clock
}

func TestController_InitialFetch(t *testing.T) {
	c, lister, _ := newTestController(t)

	c.Start(context.Background())
	call := lister.next(t)
	assert.Equal(t, types.ListJobsParams{Status: "all", Page: 1, Limit: 20}, call.params)

	r := c.CurrentResult()
	assert.Equal(t, StateLoading, r.State)
	assert.Nil(t, r.Page)

	call.reply <- listReply{resp: jobsPage(20, 45, true)}
	r = waitForState(t, c, 1, StateReady)
	require.NotNil(t, r.Page)
	assert.Len(t, r.Page.Items, 20)
	assert.True(t, r.Page.HasNext)
	assert.Equal(t, 3, r.PageCount())
}

func TestController_NoFetchBeforeStart(t *testing.T) {
	c, lister, _ := newTestController(t)

	c.SetStatusFilter(StatusApplied)
	c.SetPage(3)
	lister.assertNoCall(t)

	c.Start(context.Background())
	call := lister.next(t)
	assert.Equal(t, "applied", call.params.Status)
	assert.Equal(t, 3, call.params.Page)
	call.reply <- listReply{resp: jobsPage(0, 0, false)}
	lister.assertNoCall(t)
}

func TestController_DebounceCoalescesKeystrokes(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}
	waitForState(t, c, 1, StateReady)

	c.SetSearchText("d")
	clock.Advance(100 * time.Millisecond)
	c.SetSearchText("design")
	clock.Advance(100 * time.Millisecond)
	c.SetSearchText("designer ")
	clock.Advance(299 * time.Millisecond)
	lister.assertNoCall(t)
	assert.Equal(t, "", c.Query().SearchText)
	assert.Equal(t, "designer ", c.RawText())

	clock.Advance(time.Millisecond)
	call := lister.next(t)
	assert.Equal(t, "designer", call.params.Search)
	assert.Equal(t, 1, call.params.Page)
	call.reply <- listReply{resp: jobsPage(1, 1, false)}
	lister.assertNoCall(t)
}

func TestController_SearchCommitResetsPage(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(20, 100, true)}

	c.SetPage(4)
	call := lister.next(t)
	assert.Equal(t, 4, call.params.Page)
	call.reply <- listReply{resp: jobsPage(20, 100, true)}

	c.SetSearchText("go")
	clock.Advance(DefaultDebounce)
	call = lister.next(t)
	assert.Equal(t, 1, call.params.Page)
	assert.Equal(t, "go", call.params.Search)
	call.reply <- listReply{resp: jobsPage(1, 1, false)}
	lister.assertNoCall(t)
}

func TestController_WhitespaceOnlyChangeDoesNotFetch(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetSearchText("   ")
	clock.Advance(DefaultDebounce)
	lister.assertNoCall(t)
}

func TestController_StatusChangeIsOneFetch(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(20, 100, true)}

	c.SetPage(3)
	lister.next(t).reply <- listReply{resp: jobsPage(20, 100, true)}

	c.SetStatusFilter(StatusPending)
	call := lister.next(t)
	assert.Equal(t, "pending", call.params.Status)
	assert.Equal(t, 1, call.params.Page)
	call.reply <- listReply{resp: jobsPage(5, 5, false)}
	lister.assertNoCall(t)

	// Same status again changes nothing
	c.SetStatusFilter(StatusPending)
	lister.assertNoCall(t)
}

func TestController_StatusCommitsImmediatelyWithCommittedToken(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetSearchText("rust")
	c.SetStatusFilter(StatusDraft)
	call := lister.next(t)
	assert.Equal(t, "", call.params.Search)
	assert.Equal(t, "draft", call.params.Status)
	call.reply <- listReply{resp: jobsPage(1, 1, false)}

	clock.Advance(DefaultDebounce)
	call = lister.next(t)
	assert.Equal(t, "rust", call.params.Search)
	assert.Equal(t, "draft", call.params.Status)
	call.reply <- listReply{resp: jobsPage(1, 1, false)}
}

func TestController_LastQueryWins(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}
	waitForState(t, c, 1, StateReady)

	c.SetStatusFilter(StatusPending)
	first := lister.next(t)
	c.SetStatusFilter(StatusApplied)
	second := lister.next(t)

	second.reply <- listReply{resp: jobsPage(2, 2, false)}
	r := waitForState(t, c, 3, StateReady)
	assert.Len(t, r.Page.Items, 2)

	// The superseded fetch resolves late and must not be published
	first.reply <- listReply{resp: jobsPage(7, 7, false)}
	time.Sleep(50 * time.Millisecond)
	r = c.CurrentResult()
	assert.Equal(t, uint64(3), r.Seq)
	assert.Equal(t, StatusApplied, r.Query.Status)
	assert.Len(t, r.Page.Items, 2)
}

func TestController_StaleFailureIgnored(t *testing.T) {
	collector := metrics.NewCollector()
	c, lister, _ := newTestController(t, WithMetrics(collector))
	c.Start(context.Background())
	first := lister.next(t)

	c.SetPage(2)
	second := lister.next(t)
	second.reply <- listReply{resp: jobsPage(1, 21, false)}
	waitForState(t, c, 2, StateReady)

	first.reply <- listReply{err: types.ErrNetworkFailure}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.FetchesStale()) == 1
	}, waitTimeout, 5*time.Millisecond)

	r := c.CurrentResult()
	assert.Equal(t, StateReady, r.State)
	assert.NoError(t, r.Err)
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.FetchesIssued()))
}

func TestController_FailureKeepsLastPage(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(3, 3, false)}
	waitForState(t, c, 1, StateReady)

	c.Refresh()
	boom := fmt.Errorf("%w: connection refused", types.ErrNetworkFailure)
	lister.next(t).reply <- listReply{err: boom}

	r := waitForState(t, c, 2, StateFailed)
	assert.True(t, errors.Is(r.Err, types.ErrNetworkFailure))
	require.NotNil(t, r.Page)
	assert.Len(t, r.Page.Items, 3)

	// No automatic retry
	lister.assertNoCall(t)
}

func TestController_SetPageClampsAndDedupes(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetPage(0)
	c.SetPage(-5)
	c.SetPage(1)
	lister.assertNoCall(t)
	assert.Equal(t, 1, c.Query().Page)
}

func TestController_NextAndPrevPage(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(20, 25, true)}
	waitForState(t, c, 1, StateReady)

	c.PrevPage()
	lister.assertNoCall(t)

	c.NextPage()
	call := lister.next(t)
	assert.Equal(t, 2, call.params.Page)
	call.reply <- listReply{resp: jobsPage(5, 25, false)}
	waitForState(t, c, 2, StateReady)

	c.NextPage()
	lister.assertNoCall(t)

	c.PrevPage()
	assert.Equal(t, 1, lister.next(t).params.Page)
}

func TestController_NextPageWaitsForLoadedPage(t *testing.T) {
	c, lister, _ := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(20, 25, true)}
	waitForState(t, c, 1, StateReady)

	c.NextPage()
	second := lister.next(t)
	assert.Equal(t, 2, second.params.Page)

	// page one's has_next says nothing about page two
	c.NextPage()
	lister.assertNoCall(t)
	assert.Equal(t, 2, c.Query().Page)

	second.reply <- listReply{resp: jobsPage(5, 25, false)}
	waitForState(t, c, 2, StateReady)
	c.NextPage()
	lister.assertNoCall(t)
}

func TestController_OnResult(t *testing.T) {
	settled := make(chan Result, 8)
	c, lister, _ := newTestController(t, WithOnResult(func(r Result) { settled <- r }))
	c.Start(context.Background())
	first := lister.next(t)

	c.SetPage(2)
	second := lister.next(t)
	second.reply <- listReply{resp: jobsPage(1, 21, false)}

	next := func() Result {
		t.Helper()
		select {
		case r := <-settled:
			return r
		case <-time.After(waitTimeout):
			t.Fatal("no settled result")
			return Result{}
		}
	}

	r := next()
	assert.Equal(t, uint64(2), r.Seq)
	assert.Equal(t, StateReady, r.State)
	assert.Equal(t, 2, r.Query.Page)

	// stale completions are not reported
	first.reply <- listReply{err: types.ErrNetworkFailure}
	select {
	case r := <-settled:
		t.Fatalf("unexpected result for stale fetch: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	c.Refresh()
	lister.next(t).reply <- listReply{err: types.ErrNetworkFailure}
	r = next()
	assert.Equal(t, uint64(3), r.Seq)
	assert.Equal(t, StateFailed, r.State)
	assert.ErrorIs(t, r.Err, types.ErrNetworkFailure)
	require.NotNil(t, r.Page)
	assert.Len(t, r.Page.Items, 1)
}

func TestController_ClearFilters(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetStatusFilter(StatusGenerated)
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}
	c.SetSearchText("ml")
	clock.Advance(DefaultDebounce)
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}
	c.SetSearchText("ml eng")

	c.ClearFilters()
	call := lister.next(t)
	assert.Equal(t, types.ListJobsParams{Status: "all", Page: 1, Limit: 20}, call.params)
	assert.Equal(t, "", c.RawText())

	// The pending keystroke was discarded with the filters
	clock.Advance(DefaultDebounce)
	lister.assertNoCall(t)
}

func TestController_CloseDropsCompletions(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	call := lister.next(t)

	c.SetSearchText("late")
	c.Close()
	call.reply <- listReply{resp: jobsPage(1, 1, false)}
	clock.Advance(DefaultDebounce)

	lister.assertNoCall(t)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateLoading, c.CurrentResult().State)
}

func TestController_ZeroDebounceCommitsImmediately(t *testing.T) {
	c, lister, _ := newTestController(t, WithDebounce(0), WithPageSize(5))
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetSearchText("now")
	call := lister.next(t)
	assert.Equal(t, "now", call.params.Search)
	assert.Equal(t, 5, call.params.Limit)
}

func TestController_FlushCommitsPendingSearch(t *testing.T) {
	c, lister, clock := newTestController(t)
	c.Start(context.Background())
	lister.next(t).reply <- listReply{resp: jobsPage(1, 1, false)}

	c.SetSearchText("rust")
	c.Flush()
	call := lister.next(t)
	assert.Equal(t, "rust", call.params.Search)
	call.reply <- listReply{resp: jobsPage(1, 1, false)}

	// the stopped timer must not commit a second time
	clock.Advance(DefaultDebounce)
	lister.assertNoCall(t)

	// nothing pending
	c.Flush()
	lister.assertNoCall(t)
}
