package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())

	c.RecordFetchIssued()
	c.RecordFetchIssued()
	c.RecordFetchStale()
	c.RecordFetchFailed()
	c.RecordSearchCommit()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchesIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchesStale))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchesFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchCommits))
}

func TestCollector_Transitions(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())

	c.RecordTransition("ready", "saving")
	c.RecordTransition("saving", "ready")
	c.RecordTransition("ready", "saving")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("ready", "saving")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("saving", "ready")))
}

func TestCollector_ObserveRemoteCall(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())

	c.ObserveRemoteCall("list_jobs", 10*time.Millisecond, nil)
	c.ObserveRemoteCall("list_jobs", 20*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(c.remoteCalls))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordFetchIssued()
		c.RecordFetchStale()
		c.RecordFetchFailed()
		c.RecordSearchCommit()
		c.RecordTransition("ready", "saving")
		c.ObserveRemoteCall("get_job", time.Millisecond, nil)
	})
}

func TestCollector_NewServer(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())
	c.RecordFetchIssued()

	app := c.NewServer()
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "jobdesk_job_fetches_issued_total 1")
}
