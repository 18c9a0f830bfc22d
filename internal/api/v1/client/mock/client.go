// Package mock provides a hand written Client double for tests
package mock

import (
	"context"
	"sync"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// MockJobURL is the job URL used by the default mock responses
const MockJobURL = "https://www.upwork.com/jobs/~01mock"

// MockClient implements the Client interface for testing.
// Call tracking is guarded so the mock can back concurrent callers.
type MockClient struct {
	// Function fields that can be set to mock behavior
	HealthCheckFn        func(ctx context.Context) (map[string]string, error)
	ListJobsFn           func(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error)
	GetJobFn             func(ctx context.Context, id uint) (*types.Job, error)
	GenerateProposalFn   func(ctx context.Context, jobURL string) (*types.GenerateProposalResponse, error)
	GetProposalFn        func(ctx context.Context, jobURL string) (*types.GetProposalResponse, error)
	SaveProposalFn       func(ctx context.Context, req types.SaveProposalRequest) (*types.SaveProposalResponse, error)
	ApplyForJobFn        func(ctx context.Context, jobURL string) (*types.ApplyForJobResponse, error)
	ListPromptVersionsFn func(ctx context.Context) ([]types.PromptVersion, error)
	GetPromptFn          func(ctx context.Context, version int) (*types.PromptDetail, error)
	GetActivePromptFn    func(ctx context.Context) (*types.PromptDetail, error)
	UpdatePromptFn       func(ctx context.Context, promptText string) (int, error)
	RollbackPromptFn     func(ctx context.Context, version int) error

	mu sync.Mutex

	// Call tracking for verification
	HealthCheckCalls int
	ListJobsCalls    []types.ListJobsParams
	GetJobCalls      []uint
	// Job URLs passed to the proposal calls
	GenerateProposalCalls []string
	GetProposalCalls      []string
	SaveProposalCalls     []types.SaveProposalRequest
	ApplyForJobCalls      []string
	// Prompt calls
	ListPromptVersionsCalls int
	GetPromptCalls          []int
	GetActivePromptCalls    int
	UpdatePromptCalls       []string
	RollbackPromptCalls     []int
}

// Ensure MockClient implements Client interface
var _ client.Client = (*MockClient)(nil)

func (m *MockClient) record(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Calls returns the number of calls made to the named method
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch method {
	case "HealthCheck":
		return m.HealthCheckCalls
	case "ListJobs":
		return len(m.ListJobsCalls)
	case "GetJob":
		return len(m.GetJobCalls)
	case "GenerateProposal":
		return len(m.GenerateProposalCalls)
	case "GetProposal":
		return len(m.GetProposalCalls)
	case "SaveProposal":
		return len(m.SaveProposalCalls)
	case "ApplyForJob":
		return len(m.ApplyForJobCalls)
	case "ListPromptVersions":
		return m.ListPromptVersionsCalls
	case "GetPrompt":
		return len(m.GetPromptCalls)
	case "GetActivePrompt":
		return m.GetActivePromptCalls
	case "UpdatePrompt":
		return len(m.UpdatePromptCalls)
	case "RollbackPrompt":
		return len(m.RollbackPromptCalls)
	}
	return 0
}

// HealthCheck mocks the HealthCheck method
func (m *MockClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	m.record(func() { m.HealthCheckCalls++ })

	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}

	return map[string]string{"status": "healthy"}, nil
}

// ListJobs mocks the ListJobs method
func (m *MockClient) ListJobs(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error) {
	m.record(func() { m.ListJobsCalls = append(m.ListJobsCalls, params) })

	if m.ListJobsFn != nil {
		return m.ListJobsFn(ctx, params)
	}

	// Default mock implementation
	return &types.ListJobsResponse{
		Page:  params.Page,
		Limit: params.Limit,
		Total: 1,
		Jobs: []types.JobListItem{
			{
				ID:               1,
				JobURL:           MockJobURL,
				JobTitle:         "Mock job",
				GenerationStatus: types.GenerationStatusPending,
			},
		},
	}, nil
}

// GetJob mocks the GetJob method
func (m *MockClient) GetJob(ctx context.Context, id uint) (*types.Job, error) {
	m.record(func() { m.GetJobCalls = append(m.GetJobCalls, id) })

	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, id)
	}

	return &types.Job{
		JobListItem: types.JobListItem{
			ID:               id,
			JobURL:           MockJobURL,
			JobTitle:         "Mock job",
			GenerationStatus: types.GenerationStatusReady,
		},
		Description: types.JobDescription{
			JobType: "Fixed Price",
			Skills:  "Go",
		},
	}, nil
}

// GenerateProposal mocks the GenerateProposal method
func (m *MockClient) GenerateProposal(ctx context.Context, jobURL string) (*types.GenerateProposalResponse, error) {
	m.record(func() { m.GenerateProposalCalls = append(m.GenerateProposalCalls, jobURL) })

	if m.GenerateProposalFn != nil {
		return m.GenerateProposalFn(ctx, jobURL)
	}

	return &types.GenerateProposalResponse{
		Status:  "Processing",
		JobURL:  jobURL,
		Message: "Proposal generation started",
	}, nil
}

// GetProposal mocks the GetProposal method
func (m *MockClient) GetProposal(ctx context.Context, jobURL string) (*types.GetProposalResponse, error) {
	m.record(func() { m.GetProposalCalls = append(m.GetProposalCalls, jobURL) })

	if m.GetProposalFn != nil {
		return m.GetProposalFn(ctx, jobURL)
	}

	return &types.GetProposalResponse{
		Status: types.StatusDone,
		JobURL: jobURL,
		Proposal: types.ProposalData{
			CoverLetter: "Mock cover letter",
			QuestionsAndAnswers: []types.QuestionAnswer{
				{Question: "Why you?", Answer: "Because."},
			},
		},
	}, nil
}

// SaveProposal mocks the SaveProposal method
func (m *MockClient) SaveProposal(ctx context.Context, req types.SaveProposalRequest) (*types.SaveProposalResponse, error) {
	m.record(func() { m.SaveProposalCalls = append(m.SaveProposalCalls, req) })

	if m.SaveProposalFn != nil {
		return m.SaveProposalFn(ctx, req)
	}

	return &types.SaveProposalResponse{
		Status:   types.StatusDone,
		JobURL:   req.JobURL,
		Proposal: req.Proposal,
	}, nil
}

// ApplyForJob mocks the ApplyForJob method
func (m *MockClient) ApplyForJob(ctx context.Context, jobURL string) (*types.ApplyForJobResponse, error) {
	m.record(func() { m.ApplyForJobCalls = append(m.ApplyForJobCalls, jobURL) })

	if m.ApplyForJobFn != nil {
		return m.ApplyForJobFn(ctx, jobURL)
	}

	return &types.ApplyForJobResponse{
		Status:  "queued",
		Message: "Task enqueued",
	}, nil
}

// ListPromptVersions mocks the ListPromptVersions method
func (m *MockClient) ListPromptVersions(ctx context.Context) ([]types.PromptVersion, error) {
	m.record(func() { m.ListPromptVersionsCalls++ })

	if m.ListPromptVersionsFn != nil {
		return m.ListPromptVersionsFn(ctx)
	}

	return []types.PromptVersion{
		{ID: 1, PromptName: "proposal", Version: 1},
		{ID: 2, PromptName: "proposal", Version: 2, IsActive: true},
	}, nil
}

// GetPrompt mocks the GetPrompt method
func (m *MockClient) GetPrompt(ctx context.Context, version int) (*types.PromptDetail, error) {
	m.record(func() { m.GetPromptCalls = append(m.GetPromptCalls, version) })

	if m.GetPromptFn != nil {
		return m.GetPromptFn(ctx, version)
	}

	return &types.PromptDetail{
		PromptVersion: types.PromptVersion{ID: uint(version), PromptName: "proposal", Version: version},
		PromptText:    "Mock prompt",
	}, nil
}

// GetActivePrompt mocks the GetActivePrompt method
func (m *MockClient) GetActivePrompt(ctx context.Context) (*types.PromptDetail, error) {
	m.record(func() { m.GetActivePromptCalls++ })

	if m.GetActivePromptFn != nil {
		return m.GetActivePromptFn(ctx)
	}

	return &types.PromptDetail{
		PromptVersion: types.PromptVersion{Version: -1, IsActive: true},
		PromptText:    "Mock active prompt",
	}, nil
}

// UpdatePrompt mocks the UpdatePrompt method
func (m *MockClient) UpdatePrompt(ctx context.Context, promptText string) (int, error) {
	m.record(func() { m.UpdatePromptCalls = append(m.UpdatePromptCalls, promptText) })

	if m.UpdatePromptFn != nil {
		return m.UpdatePromptFn(ctx, promptText)
	}

	return 3, nil
}

// RollbackPrompt mocks the RollbackPrompt method
func (m *MockClient) RollbackPrompt(ctx context.Context, version int) error {
	m.record(func() { m.RollbackPromptCalls = append(m.RollbackPromptCalls, version) })

	if m.RollbackPromptFn != nil {
		return m.RollbackPromptFn(ctx, version)
	}

	return nil
}
