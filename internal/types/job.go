package types

import (
	"fmt"
	"strings"
)

// GenerationStatus is the proposal generation state the backend reports for a job
type GenerationStatus string

// Generation statuses observed on job records. Unknown strings pass through verbatim.
const (
	// GenerationStatusPending means no proposal has been requested yet
	GenerationStatusPending GenerationStatus = "pending"
	// GenerationStatusProcessing means the backend is generating the proposal
	GenerationStatusProcessing GenerationStatus = "processing"
	// GenerationStatusReady means a proposal exists and can be fetched
	GenerationStatusReady GenerationStatus = "ready"
	// GenerationStatusApplied means an application has been submitted
	GenerationStatusApplied GenerationStatus = "applied"
)

// JobDescription holds the scraped posting details of a job
type JobDescription struct {
	ClientLocation  string `json:"client_location"`  // Location of the hiring client
	HireRate        string `json:"hire_rate"`        // Client hire rate, as displayed
	TotalSpent      string `json:"total_spent"`      // Client total spend, as displayed
	MemberSince     string `json:"member_since"`     // Client registration date
	PaymentVerified bool   `json:"payment_verified"` // Whether the client payment method is verified
	Summary         string `json:"summary"`          // Posting body
	DurationType    string `json:"duration_type"`    // Duration category
	Duration        string `json:"duration"`         // Expected engagement length
	HourlyRate      string `json:"hourly_rate"`      // Rate or budget, as displayed
	JobType         string `json:"job_type"`         // "Fixed Price" or hourly
	Skills          string `json:"skills"`           // Comma separated skill list
	Qualified       bool   `json:"qualified"`        // Whether the profile qualifies
	Questions       string `json:"questions"`        // Screening questions, "N/A" when absent
}

// SkillList splits the comma separated skills, dropping blanks
func (d JobDescription) SkillList() []string {
	var skills []string
	for _, s := range strings.Split(d.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// HasQuestions reports whether the posting carries screening questions
func (d JobDescription) HasQuestions() bool {
	q := strings.TrimSpace(d.Questions)
	return q != "" && q != "N/A"
}

// IsFixedPrice reports whether the job is billed as a fixed price
func (d JobDescription) IsFixedPrice() bool {
	return d.JobType == "Fixed Price"
}

// JobListItem is a job as returned by the list endpoint
type JobListItem struct {
	ID               uint             `json:"id"`                         // Backend job ID
	JobUUID          int64            `json:"job_uuid"`                   // Source platform identifier
	JobURL           string           `json:"job_url"`                    // Canonical posting URL, used as the proposal key
	JobTitle         string           `json:"job_title"`                  // Posting title
	GenerationStatus GenerationStatus `json:"proposal_generation_status"` // Proposal generation state
}

// Job is a job as returned by the detail endpoint
type Job struct {
	JobListItem
	Description JobDescription `json:"job_description"` // Posting details
}

// ListJobsParams are the query parameters of the list endpoint.
// Zero values are omitted from the request.
type ListJobsParams struct {
	Search string `json:"search,omitempty"` // Free text search token
	Status string `json:"status,omitempty"` // Status filter value
	Page   int    `json:"page,omitempty"`   // 1-based page number
	Limit  int    `json:"limit,omitempty"`  // Page size
}

// Validate checks the pagination values
func (p ListJobsParams) Validate() error {
	if p.Page < 0 {
		return fmt.Errorf("%w: page must be a positive number from 1", ErrValidation)
	}
	if p.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	return nil
}

// ListJobsResponse is the body of the list endpoint
type ListJobsResponse struct {
	Page    int           `json:"page"`     // Page that was served
	Limit   int           `json:"limit"`    // Page size that was applied
	Total   int           `json:"total"`    // Total number of matching jobs
	HasNext bool          `json:"has_next"` // Whether a further page exists
	Jobs    []JobListItem `json:"jobs"`     // Jobs on this page
}
