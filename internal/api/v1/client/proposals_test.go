package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/jobdesk/internal/types"
)

const testJobURL = "https://www.upwork.com/jobs/~01abc"

func TestAPIClient_GenerateProposal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proposals/generate_proposal", r.URL.Path)
		assert.Equal(t, testJobURL, r.URL.Query().Get("job_url"))

		_, _ = w.Write([]byte(`{"status": "Processing", "job_url": "` + testJobURL + `", "message": "Proposal generation started"}`))
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.GenerateProposal(context.Background(), testJobURL)
	require.NoError(t, err)
	assert.Equal(t, "Proposal generation started", resp.Message)
}

func TestAPIClient_GetProposal(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/proposals/get_proposal", r.URL.Path)
			assert.Equal(t, testJobURL, r.URL.Query().Get("job_url"))

			_, _ = w.Write([]byte(`{
				"status": "Done",
				"job_url": "` + testJobURL + `",
				"profile": "machine_learning",
				"applied": true,
				"proposal": {
					"cover_letter": "Hello",
					"questions_and_answers": [{"question": "Q1", "answer": "A1"}]
				}
			}`))
		}))
		defer server.Close()

		client, err := NewClient(&Options{BaseURL: server.URL})
		require.NoError(t, err)

		resp, err := client.GetProposal(context.Background(), testJobURL)
		require.NoError(t, err)
		assert.True(t, resp.Found())
		assert.True(t, resp.Applied)
		assert.Equal(t, types.ProfileMachineLearning, resp.Profile)
		assert.Equal(t, "Hello", resp.Proposal.CoverLetter)
		require.Len(t, resp.Proposal.QuestionsAndAnswers, 1)
		assert.Equal(t, "A1", resp.Proposal.QuestionsAndAnswers[0].Answer)
	})

	t.Run("not generated yet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "Not Found"}`))
		}))
		defer server.Close()

		client, err := NewClient(&Options{BaseURL: server.URL})
		require.NoError(t, err)

		resp, err := client.GetProposal(context.Background(), testJobURL)
		require.NoError(t, err)
		assert.False(t, resp.Found())
	})

	t.Run("missing job", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		client, err := NewClient(&Options{BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.GetProposal(context.Background(), testJobURL)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestAPIClient_SaveProposal(t *testing.T) {
	var received types.SaveProposalRequest
	var rawBody map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proposals/save_proposal", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		require.NoError(t, json.Unmarshal(body, &rawBody))

		_, _ = w.Write([]byte(`{"status": "Done", "job_url": "` + testJobURL + `"}`))
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.SaveProposal(context.Background(), types.SaveProposalRequest{
		JobURL:   testJobURL,
		Proposal: types.ProposalData{CoverLetter: "Edited"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())

	assert.Equal(t, testJobURL, received.JobURL)
	assert.Equal(t, "Edited", received.Proposal.CoverLetter)
	assert.NotContains(t, rawBody, "profile")

	var proposal map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rawBody["proposal"], &proposal))
	assert.JSONEq(t, `[]`, string(proposal["questions_and_answers"]))
}

func TestAPIClient_ApplyForJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks/enqueue_task", r.URL.Path)
		assert.Equal(t, types.TaskTypeApplyForJob, r.URL.Query().Get("task_type"))

		var payload types.ApplyForJobPayload
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("payload")), &payload))
		assert.Equal(t, testJobURL, payload.JobURL)

		_, _ = w.Write([]byte(`{"status": "queued", "message": "Task enqueued"}`))
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.ApplyForJob(context.Background(), testJobURL)
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "Task enqueued", resp.Message)
}
