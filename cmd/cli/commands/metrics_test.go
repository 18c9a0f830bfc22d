package commands

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServerRecordsCommandCalls(t *testing.T) {
	ct := newCLITest(t)

	_, err := ct.run("", "jobs", "list")
	require.NoError(t, err)
	require.NotNil(t, collector)

	// the collector of the last command serves what that command did
	resp, err := collector.NewServer().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "jobdesk_job_fetches_issued_total 1")
}
