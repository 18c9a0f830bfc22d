// Package client provides the API client for the proposal backend
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/celestiaorg/jobdesk/internal/api/v1/routes"
	"github.com/celestiaorg/jobdesk/internal/logger"
	"github.com/celestiaorg/jobdesk/internal/metrics"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per request correlation ID
const RequestIDHeader = "X-Request-ID"

// Client defines the interface for interacting with the proposal backend
type Client interface {
	// Health check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job methods
	ListJobs(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error)
	GetJob(ctx context.Context, id uint) (*types.Job, error)

	// Proposal methods
	GenerateProposal(ctx context.Context, jobURL string) (*types.GenerateProposalResponse, error)
	GetProposal(ctx context.Context, jobURL string) (*types.GetProposalResponse, error)
	SaveProposal(ctx context.Context, req types.SaveProposalRequest) (*types.SaveProposalResponse, error)
	ApplyForJob(ctx context.Context, jobURL string) (*types.ApplyForJobResponse, error)

	// Prompt methods
	ListPromptVersions(ctx context.Context) ([]types.PromptVersion, error)
	GetPrompt(ctx context.Context, version int) (*types.PromptDetail, error)
	GetActivePrompt(ctx context.Context) (*types.PromptDetail, error)
	UpdatePrompt(ctx context.Context, promptText string) (int, error)
	RollbackPrompt(ctx context.Context, version int) error
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// AuthToken is sent as a bearer token when set
	AuthToken string

	// Metrics records call latency when set
	Metrics *metrics.Collector
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL   string
	timeout   time.Duration
	authToken string
	metrics   *metrics.Collector
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL:   opts.BaseURL,
		timeout:   timeout,
		authToken: opts.AuthToken,
		metrics:   opts.Metrics,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, string, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	// Create a new agent based on the HTTP method
	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, "", fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	// Set common headers
	requestID := uuid.NewString()
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	agent.Set(RequestIDHeader, requestID)
	if c.authToken != "" {
		agent.Set("Authorization", "Bearer "+c.authToken)
	}

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, requestID, nil
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		return &fiber.Error{
			Code:    statusCode,
			Message: errorMessage(statusCode, body),
		}
	}

	// Decode the response body if a target is provided
	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRequest creates an agent, sends the request, and processes the response.
// Every failure is classified into the shared error taxonomy.
func (c *APIClient) executeRequest(ctx context.Context, operation, method, endpoint string, body, response interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrNetworkFailure, err)
	}

	agent, requestID, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	logger.DebugWithFields("Sending API request", map[string]interface{}{
		"operation":  operation,
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
	})

	start := time.Now()
	err = classify(c.doRequest(agent, response))
	c.metrics.ObserveRemoteCall(operation, time.Since(start), err)

	if err != nil {
		logger.DebugWithFields("API request failed", map[string]interface{}{
			"operation":  operation,
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
	return err
}

// classify wraps err with the matching taxonomy sentinel while keeping the
// original error, including any *fiber.Error, in the chain
func classify(err error) error {
	if err == nil {
		return nil
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", types.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", types.ErrNetworkFailure, err)
}

// errorMessage extracts a human readable message from an error body
func errorMessage(statusCode int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if msg := errResp.Text(); msg != "" {
			return msg
		}
	}
	return "HTTP " + strconv.Itoa(statusCode)
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	var response map[string]string
	if err := c.executeRequest(ctx, "health_check", http.MethodGet, routes.HealthCheckURL(), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Job methods implementation

// ListJobs lists one page of jobs. Zero valued parameters are left out of the query.
func (c *APIClient) ListJobs(ctx context.Context, params types.ListJobsParams) (*types.ListJobsResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		query.Set("status", params.Status)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	var response types.ListJobsResponse
	if err := c.executeRequest(ctx, "list_jobs", http.MethodGet, routes.ListJobsURL(query), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetJob retrieves a job with its description
func (c *APIClient) GetJob(ctx context.Context, id uint) (*types.Job, error) {
	var response types.Job
	if err := c.executeRequest(ctx, "get_job", http.MethodGet, routes.GetJobURL(id), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Proposal methods implementation

// GenerateProposal asks the backend to start generating a proposal for a job.
// Generation is asynchronous; the response only acknowledges the request.
func (c *APIClient) GenerateProposal(ctx context.Context, jobURL string) (*types.GenerateProposalResponse, error) {
	var response types.GenerateProposalResponse
	if err := c.executeRequest(ctx, "generate_proposal", http.MethodPost, routes.GenerateProposalURL(jobURL), struct{}{}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetProposal fetches the stored proposal of a job. A missing proposal is
// reported through the response status, see GetProposalResponse.Found.
func (c *APIClient) GetProposal(ctx context.Context, jobURL string) (*types.GetProposalResponse, error) {
	var response types.GetProposalResponse
	if err := c.executeRequest(ctx, "get_proposal", http.MethodGet, routes.GetProposalURL(jobURL), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SaveProposal stores an edited proposal
func (c *APIClient) SaveProposal(ctx context.Context, req types.SaveProposalRequest) (*types.SaveProposalResponse, error) {
	if req.Proposal.QuestionsAndAnswers == nil {
		req.Proposal.QuestionsAndAnswers = []types.QuestionAnswer{}
	}

	var response types.SaveProposalResponse
	if err := c.executeRequest(ctx, "save_proposal", http.MethodPost, routes.SaveProposalURL(), req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ApplyForJob enqueues the backend task that submits the application
func (c *APIClient) ApplyForJob(ctx context.Context, jobURL string) (*types.ApplyForJobResponse, error) {
	payload, err := json.Marshal(types.ApplyForJobPayload{JobURL: jobURL})
	if err != nil {
		return nil, fmt.Errorf("error marshaling payload: %w", err)
	}

	endpoint := routes.EnqueueTaskURL(types.TaskTypeApplyForJob, string(payload))
	var response types.ApplyForJobResponse
	if err := c.executeRequest(ctx, "apply_for_job", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
