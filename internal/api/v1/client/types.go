package client

import (
	"encoding/json"
	"strings"
)

// ErrorResponse represents an error body from the backend. Handlers answer
// either with a message field or with a FastAPI style detail.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Status  int             `json:"status"`
}

// Text returns the most specific message the body carries
func (e ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(e.Detail, &detail); err == nil {
			return detail
		}
		if raw := strings.TrimSpace(string(e.Detail)); raw != "null" {
			return raw
		}
	}
	return e.Error
}
