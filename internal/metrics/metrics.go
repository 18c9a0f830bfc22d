// Package metrics exposes Prometheus instruments for the job query controller,
// proposal sessions and backend calls.
//
// Counters:
//   - jobdesk_job_fetches_issued_total: list fetches issued for a new effective query
//   - jobdesk_job_fetches_stale_total: list responses dropped because a newer query was issued
//   - jobdesk_job_fetches_failed_total: list fetches that failed and kept the previous page
//   - jobdesk_search_commits_total: debounced search tokens committed
//   - jobdesk_proposal_transitions_total{from,to}: proposal session phase changes
//
// Histograms:
//   - jobdesk_remote_call_seconds{operation,outcome}: backend call latency
//
// All methods are safe to call on a nil *Collector, which records nothing.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celestiaorg/jobdesk/internal/logger"
)

// Outcome label values for remote calls
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Collector holds every jobdesk instrument
type Collector struct {
	fetchesIssued prometheus.Counter
	fetchesStale  prometheus.Counter
	fetchesFailed prometheus.Counter
	searchCommits prometheus.Counter

	transitions *prometheus.CounterVec
	remoteCalls *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates a collector registered on reg
func NewCollectorWithRegistry(reg *prometheus.Registry) *Collector {
	c := &Collector{
		fetchesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobdesk_job_fetches_issued_total",
			Help: "Total number of job list fetches issued",
		}),
		fetchesStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobdesk_job_fetches_stale_total",
			Help: "Total number of job list responses discarded as stale",
		}),
		fetchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobdesk_job_fetches_failed_total",
			Help: "Total number of job list fetches that failed",
		}),
		searchCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobdesk_search_commits_total",
			Help: "Total number of debounced search tokens committed",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobdesk_proposal_transitions_total",
			Help: "Total number of proposal session phase transitions",
		}, []string{"from", "to"}),
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobdesk_remote_call_seconds",
			Help:    "Latency of backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.fetchesIssued,
		c.fetchesStale,
		c.fetchesFailed,
		c.searchCommits,
		c.transitions,
		c.remoteCalls,
	)

	return c
}

// RecordFetchIssued counts an issued list fetch
func (c *Collector) RecordFetchIssued() {
	if c == nil {
		return
	}
	c.fetchesIssued.Inc()
}

// RecordFetchStale counts a discarded list response
func (c *Collector) RecordFetchStale() {
	if c == nil {
		return
	}
	c.fetchesStale.Inc()
}

// RecordFetchFailed counts a failed list fetch
func (c *Collector) RecordFetchFailed() {
	if c == nil {
		return
	}
	c.fetchesFailed.Inc()
}

// RecordSearchCommit counts a committed search token
func (c *Collector) RecordSearchCommit() {
	if c == nil {
		return
	}
	c.searchCommits.Inc()
}

// RecordTransition counts a proposal phase change
func (c *Collector) RecordTransition(from, to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(from, to).Inc()
}

// ObserveRemoteCall records the latency and outcome of a backend call
func (c *Collector) ObserveRemoteCall(operation string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.remoteCalls.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// FetchesIssued returns the issued fetch counter
func (c *Collector) FetchesIssued() prometheus.Counter { return c.fetchesIssued }

// FetchesStale returns the stale fetch counter
func (c *Collector) FetchesStale() prometheus.Counter { return c.fetchesStale }

// FetchesFailed returns the failed fetch counter
func (c *Collector) FetchesFailed() prometheus.Counter { return c.fetchesFailed }

// Transitions returns the counter for one phase transition
func (c *Collector) Transitions(from, to string) prometheus.Counter {
	return c.transitions.WithLabelValues(from, to)
}

// Gatherer returns the registry the collector is registered on
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// NewServer returns a fiber app serving the collector's registry on /metrics
func (c *Collector) NewServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(logger.APILogger())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})))
	return app
}
