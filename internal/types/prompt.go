package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PromptVersion describes one stored version of the proposal prompt
type PromptVersion struct {
	ID         uint    `json:"id,omitempty" yaml:"id,omitempty"`
	PromptName string  `json:"prompt_name,omitempty" yaml:"prompt_name,omitempty"`
	Version    int     `json:"version" yaml:"version"`
	IsActive   bool    `json:"is_active" yaml:"is_active"`
	CreatedAt  *string `json:"created_at" yaml:"created_at"`
}

// PromptDetail is a prompt version with its text
type PromptDetail struct {
	PromptVersion `yaml:",inline"`
	PromptText    string `json:"prompt_text" yaml:"prompt_text"`
}

// PromptEnvelope wraps every prompt endpoint response
type PromptEnvelope struct {
	Status  string          `json:"status"`
	Value   json.RawMessage `json:"value"`
	Message string          `json:"message"`
}

// OK reports whether the envelope carries a successful result
func (e PromptEnvelope) OK() bool {
	return e.Status == StatusDone
}

// HasValue reports whether the value is present and not JSON null or empty
func (e PromptEnvelope) HasValue() bool {
	v := strings.TrimSpace(string(e.Value))
	return v != "" && v != "null" && v != `""`
}

// ValidatePromptText rejects prompt text that is blank
func ValidatePromptText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: prompt text cannot be empty", ErrValidation)
	}
	return nil
}

// ParseLegacyPromptVersions parses the older line based version listing:
// blocks of "key: value" lines separated by blank lines. Recognized keys are
// version, is_active ("True") and created_at ("None" means absent).
func ParseLegacyPromptVersions(raw string) []PromptVersion {
	var (
		versions []PromptVersion
		current  PromptVersion
		seen     bool
	)

	flush := func() {
		if seen {
			versions = append(versions, current)
		}
		current = PromptVersion{}
		seen = false
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}

		switch key {
		case "version":
			if v, err := strconv.Atoi(value); err == nil {
				current.Version = v
				seen = true
			}
		case "is_active":
			current.IsActive = value == "True"
			seen = true
		case "created_at":
			if value != "None" {
				createdAt := value
				current.CreatedAt = &createdAt
			}
			seen = true
		}
	}
	flush()

	return versions
}
