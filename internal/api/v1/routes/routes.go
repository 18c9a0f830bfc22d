// Package routes defines the backend endpoints the client talks to
package routes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the default base URL of the proposal backend
const DefaultBaseURL = "http://localhost:8000/api"

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Job routes
	ListJobs = "ListJobs"
	GetJob   = "GetJob"

	// Proposal routes
	GenerateProposal = "GenerateProposal"
	GetProposal      = "GetProposal"
	SaveProposal     = "SaveProposal"

	// Task routes
	EnqueueTask = "EnqueueTask"

	// Prompt routes
	ListPromptVersions = "ListPromptVersions"
	GetPrompt          = "GetPrompt"
	GetActivePrompt    = "GetActivePrompt"
	UpdatePrompt       = "UpdatePrompt"
	RollbackPrompt     = "RollbackPrompt"
)

// routeTable maps route names to path patterns relative to the base URL.
// ":name" segments are replaced by BuildURL.
var routeTable = map[string]string{
	HealthCheck:        "/health",
	ListJobs:           "/jobs/",
	GetJob:             "/jobs/:id",
	GenerateProposal:   "/proposals/generate_proposal",
	GetProposal:        "/proposals/get_proposal",
	SaveProposal:       "/proposals/save_proposal",
	EnqueueTask:        "/tasks/enqueue_task",
	ListPromptVersions: "/prompts/list_proposal_prompt_versions",
	GetPrompt:          "/prompts/get_proposal_prompt",
	GetActivePrompt:    "/prompts/get_active_proposal_prompt",
	UpdatePrompt:       "/prompts/update_proposal_prompt",
	RollbackPrompt:     "/prompts/rollback_proposal_prompt",
}

// GetRoute returns the path pattern for a route name, or "" if unknown
func GetRoute(name string) string {
	return routeTable[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, url.PathEscape(value))
	}

	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// ListJobsURL returns the URL for listing jobs
func ListJobsURL(queryParams url.Values) string {
	return BuildURL(ListJobs, nil, queryParams)
}

// GetJobURL returns the URL for getting a job by ID
func GetJobURL(id uint) string {
	return BuildURL(GetJob, map[string]string{"id": strconv.FormatUint(uint64(id), 10)}, nil)
}

// GenerateProposalURL returns the URL that starts proposal generation for a job
func GenerateProposalURL(jobURL string) string {
	return BuildURL(GenerateProposal, nil, url.Values{"job_url": {jobURL}})
}

// GetProposalURL returns the URL for fetching the stored proposal of a job
func GetProposalURL(jobURL string) string {
	return BuildURL(GetProposal, nil, url.Values{"job_url": {jobURL}})
}

// SaveProposalURL returns the URL for saving a proposal
func SaveProposalURL() string {
	return BuildURL(SaveProposal, nil, nil)
}

// EnqueueTaskURL returns the URL for enqueueing a backend task with a JSON payload
func EnqueueTaskURL(taskType, payload string) string {
	return BuildURL(EnqueueTask, nil, url.Values{
		"task_type": {taskType},
		"payload":   {payload},
	})
}

// ListPromptVersionsURL returns the URL for listing prompt versions
func ListPromptVersionsURL() string {
	return BuildURL(ListPromptVersions, nil, nil)
}

// GetPromptURL returns the URL for a specific prompt version
func GetPromptURL(version int) string {
	return BuildURL(GetPrompt, nil, url.Values{"version": {strconv.Itoa(version)}})
}

// GetActivePromptURL returns the URL for the active prompt
func GetActivePromptURL() string {
	return BuildURL(GetActivePrompt, nil, nil)
}

// UpdatePromptURL returns the URL that stores a new prompt version
func UpdatePromptURL(promptText string) string {
	return BuildURL(UpdatePrompt, nil, url.Values{"prompt_text": {promptText}})
}

// RollbackPromptURL returns the URL that reactivates a prompt version
func RollbackPromptURL(version int) string {
	return BuildURL(RollbackPrompt, nil, url.Values{"version": {strconv.Itoa(version)}})
}
