package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client"
	"github.com/celestiaorg/jobdesk/internal/api/v1/client/mock"
	"github.com/celestiaorg/jobdesk/internal/constants"
)

// cliTest runs commands against a mock client with an isolated home directory
type cliTest struct {
	t      *testing.T
	mock   *mock.MockClient
	opts   *client.Options
	stderr *bytes.Buffer
}

func newCLITest(t *testing.T) *cliTest {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(constants.EnvConfigFile, "")
	t.Setenv(constants.EnvServerAddress, "")
	t.Setenv(constants.EnvAPIToken, "")
	t.Setenv("JOBDESK_API_BASE_URL", "")
	t.Setenv("JOBDESK_METRICS_ADDR", "")
	t.Setenv("JOBDESK_DRAFTS_DRIVER", "sqlite")
	t.Setenv("JOBDESK_DRAFTS_DSN", filepath.Join(home, "drafts.db"))

	ct := &cliTest{t: t, mock: &mock.MockClient{}}

	original := newAPIClient
	newAPIClient = func(opts *client.Options) (client.Client, error) {
		ct.opts = opts
		return ct.mock, nil
	}
	t.Cleanup(func() {
		newAPIClient = original
		apiClient = nil
	})
	return ct
}

// run executes args with stdin and returns what the command wrote to stdout
func (ct *cliTest) run(stdin string, args ...string) (string, error) {
	ct.t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	ct.stderr = &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(ct.stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_ServerAddressPrecedence(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		ct := newCLITest(t)
		_, err := ct.run("", "prompts", "active")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000/api", ct.opts.BaseURL)
		assert.Equal(t, client.DefaultTimeout, ct.opts.Timeout)
		assert.NotNil(t, ct.opts.Metrics)
	})

	t.Run("environment", func(t *testing.T) {
		ct := newCLITest(t)
		t.Setenv(constants.EnvServerAddress, "http://env.example/api")
		t.Setenv(constants.EnvAPIToken, "token")
		_, err := ct.run("", "prompts", "active")
		require.NoError(t, err)
		assert.Equal(t, "http://env.example/api", ct.opts.BaseURL)
		assert.Equal(t, "token", ct.opts.AuthToken)
	})

	t.Run("flag wins over environment", func(t *testing.T) {
		ct := newCLITest(t)
		t.Setenv(constants.EnvServerAddress, "http://env.example/api")
		_, err := ct.run("", "--server-address", "http://flag.example/api", "--timeout", "5s", "prompts", "active")
		require.NoError(t, err)
		assert.Equal(t, "http://flag.example/api", ct.opts.BaseURL)
		assert.Equal(t, 5*time.Second, ct.opts.Timeout)
	})
}

func TestRootCmd_InvalidConfiguration(t *testing.T) {
	ct := newCLITest(t)

	_, err := ct.run("", "--output", "xml", "prompts", "active")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = ct.run("", "--server-address", " ", "prompts", "active")
	assert.Error(t, err)
	assert.Equal(t, 0, ct.mock.Calls("GetActivePrompt"))
}

func TestRootCmd_YAMLOutput(t *testing.T) {
	ct := newCLITest(t)

	out, err := ct.run("", "-o", "yaml", "prompts", "get", "--version", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2")
	assert.Contains(t, out, "prompt_text: Mock prompt")
}
