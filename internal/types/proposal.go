package types

import (
	"fmt"
	"strings"
)

// StatusDone is the status string the backend uses for a successful operation
const StatusDone = "Done"

// ProfileName identifies the freelancer profile a proposal is written for
type ProfileName string

const (
	// ProfileGeneral is the general purpose profile
	ProfileGeneral ProfileName = "general_profile"
	// ProfileMachineLearning is the specialized machine learning profile
	ProfileMachineLearning ProfileName = "machine_learning"
)

// QuestionAnswer is one screening question with its answer
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ProposalData is the editable body of a proposal
type ProposalData struct {
	CoverLetter         string           `json:"cover_letter"`
	QuestionsAndAnswers []QuestionAnswer `json:"questions_and_answers"`
}

// GenerateProposalResponse is returned when generation is requested
type GenerateProposalResponse struct {
	Status   string       `json:"status"`
	JobType  string       `json:"job_type"`
	JobURL   string       `json:"job_url"`
	Proposal ProposalData `json:"proposal"`
	Message  string       `json:"message,omitempty"`
}

// GetProposalResponse is the stored proposal of a job
type GetProposalResponse struct {
	Status   string       `json:"status"`
	JobURL   string       `json:"job_url"`
	JobType  string       `json:"job_type"`
	Profile  ProfileName  `json:"profile,omitempty"`
	Proposal ProposalData `json:"proposal"`
	Applied  bool         `json:"applied"`
}

// Found reports whether the backend had a proposal for the job
func (r GetProposalResponse) Found() bool {
	return r.Status == StatusDone
}

// SaveProposalRequest is the body of the save endpoint
type SaveProposalRequest struct {
	JobURL   string       `json:"job_url"`
	Profile  ProfileName  `json:"profile,omitempty"`
	Proposal ProposalData `json:"proposal"`
}

// SaveProposalResponse is returned by the save endpoint
type SaveProposalResponse struct {
	Status   string       `json:"status"`
	JobURL   string       `json:"job_url"`
	Proposal ProposalData `json:"proposal"`
}

// Succeeded reports whether the backend stored the proposal
func (r SaveProposalResponse) Succeeded() bool {
	return r.Status == StatusDone
}

// ApplyForJobResponse is returned when an apply task is enqueued
type ApplyForJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Succeeded reports whether the apply task was accepted. Any non-empty status
// is an acceptance; the backend does not use a fixed vocabulary here.
func (r ApplyForJobResponse) Succeeded() bool {
	return r.Status != ""
}

// TaskTypeApplyForJob is the task type that submits an application
const TaskTypeApplyForJob = "apply_for_job"

// ApplyForJobPayload is the JSON payload of the apply task
type ApplyForJobPayload struct {
	JobURL string `json:"job_url"`
}

// ParseProfile accepts a profile by its wire name or its short name
// ("general", "specialized")
func ParseProfile(s string) (ProfileName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", string(ProfileGeneral):
		return ProfileGeneral, nil
	case "specialized", string(ProfileMachineLearning):
		return ProfileMachineLearning, nil
	}
	return "", fmt.Errorf("%w: unknown profile %q", ErrValidation, s)
}
