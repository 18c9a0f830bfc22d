package test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client"
	"github.com/celestiaorg/jobdesk/internal/db/repos"
	"github.com/celestiaorg/jobdesk/internal/events"
	"github.com/celestiaorg/jobdesk/internal/jobquery"
	"github.com/celestiaorg/jobdesk/internal/metrics"
	"github.com/celestiaorg/jobdesk/internal/proposal"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// waitTimeout bounds every asynchronous wait of a suite
const waitTimeout = 5 * time.Second

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - An in-memory fake backend served over real HTTP
//   - A real API client pointed at it
//   - A file-based draft stash
//   - A started event bus and a metrics collector
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App     *fiber.App
	Server  *httptest.Server
	Backend *Backend

	// Client components
	APIClient client.Client
	Metrics   *metrics.Collector
	Bus       *events.Bus

	// Database components
	DB        *gorm.DB
	DraftRepo *repos.DraftRepository

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	cleanup     func()
	cleanupOnce sync.Once
}

// NewSuite creates a new test suite with the given options.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	s := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
		Backend:    NewBackend(),
		Metrics:    metrics.NewCollector(),
		Bus:        events.NewBus(),
	}
	s.cleanup = func() {
		if s.cancelFunc != nil {
			s.cancelFunc()
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	SetupTestDB(s, nil)
	SetupServer(s)

	s.Bus.Start(s.ctx)
	return s
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Cleanup tears down the test suite, releasing all resources.
// It is safe to call more than once.
func (s *Suite) Cleanup() {
	s.cleanupOnce.Do(func() {
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// addCleanup runs fn before the cleanups registered so far
func (s *Suite) addCleanup(fn func()) {
	prev := s.cleanup
	s.cleanup = func() {
		fn()
		if prev != nil {
			prev()
		}
	}
}

// NewController returns a job query controller wired to the suite client,
// bus and metrics. It is closed on cleanup.
func (s *Suite) NewController(opts ...jobquery.Option) *jobquery.Controller {
	base := []jobquery.Option{
		jobquery.WithEvents(s.Bus),
		jobquery.WithMetrics(s.Metrics),
	}
	ctrl := jobquery.NewController(s.APIClient, append(base, opts...)...)
	s.addCleanup(ctrl.Close)
	return ctrl
}

// NewSession returns a proposal session for jobID wired to the suite client,
// bus and metrics
func (s *Suite) NewSession(jobID uint) *proposal.Session {
	return proposal.NewSession(s.APIClient, jobID,
		proposal.WithEvents(s.Bus),
		proposal.WithMetrics(s.Metrics),
	)
}

// WaitForResult waits until the controller publishes a result matching cond
func (s *Suite) WaitForResult(ctrl *jobquery.Controller, cond func(jobquery.Result) bool) jobquery.Result {
	s.t.Helper()
	var last jobquery.Result
	s.Require().Eventually(func() bool {
		last = ctrl.CurrentResult()
		return cond(last)
	}, waitTimeout, 5*time.Millisecond, "controller never published the expected result")
	return last
}

// WaitFor waits until cond holds
func (s *Suite) WaitFor(cond func() bool, msgAndArgs ...interface{}) {
	s.t.Helper()
	s.Require().Eventually(cond, waitTimeout, 5*time.Millisecond, msgAndArgs...)
}
