package types

import "errors"

// Error taxonomy shared by the client and the core packages. Callers match
// with errors.Is; concrete errors wrap one of these.
var (
	// ErrNetworkFailure covers an unreachable backend and any non-success response
	ErrNetworkFailure = errors.New("network failure")
	// ErrNotFound is returned when a job, proposal or prompt does not exist
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for inputs rejected before any request is sent
	ErrValidation = errors.New("validation failure")
	// ErrStateConflict is returned when an action is attempted from a phase that forbids it
	ErrStateConflict = errors.New("state conflict")
)
