package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/celestiaorg/jobdesk/internal/api/v1/routes"
	"github.com/celestiaorg/jobdesk/internal/types"
)

var updatedVersionPattern = regexp.MustCompile(`version (\d+)`)

// doPrompt executes a prompt endpoint call and unwraps its envelope.
// A status other than Done is reported with the server message.
func (c *APIClient) doPrompt(ctx context.Context, operation, method, endpoint, fallback string) (*types.PromptEnvelope, error) {
	var body interface{}
	if method == http.MethodPost {
		body = struct{}{}
	}

	var envelope types.PromptEnvelope
	if err := c.executeRequest(ctx, operation, method, endpoint, body, &envelope); err != nil {
		return nil, err
	}
	if !envelope.OK() {
		msg := envelope.Message
		if msg == "" {
			msg = fallback
		}
		return nil, fmt.Errorf("%w: %s", types.ErrNetworkFailure, msg)
	}
	return &envelope, nil
}

// ListPromptVersions lists every stored prompt version. Older backends answer
// with a line based listing instead of a JSON array; both are accepted.
func (c *APIClient) ListPromptVersions(ctx context.Context) ([]types.PromptVersion, error) {
	envelope, err := c.doPrompt(ctx, "list_prompt_versions", http.MethodGet, routes.ListPromptVersionsURL(), "failed to fetch prompt versions")
	if err != nil {
		return nil, err
	}
	if !envelope.HasValue() {
		return nil, fmt.Errorf("%w: failed to fetch prompt versions", types.ErrNetworkFailure)
	}

	var versions []types.PromptVersion
	if err := json.Unmarshal(envelope.Value, &versions); err == nil {
		return versions, nil
	}

	var legacy string
	if err := json.Unmarshal(envelope.Value, &legacy); err != nil {
		return nil, fmt.Errorf("%w: unexpected prompt version listing: %w", types.ErrNetworkFailure, err)
	}
	return types.ParseLegacyPromptVersions(legacy), nil
}

// GetPrompt retrieves a specific prompt version with its text
func (c *APIClient) GetPrompt(ctx context.Context, version int) (*types.PromptDetail, error) {
	envelope, err := c.doPrompt(ctx, "get_prompt", http.MethodGet, routes.GetPromptURL(version), "failed to fetch prompt")
	if err != nil {
		return nil, err
	}
	if !envelope.HasValue() {
		return nil, fmt.Errorf("%w: prompt version %d", types.ErrNotFound, version)
	}

	var detail types.PromptDetail
	if err := json.Unmarshal(envelope.Value, &detail); err != nil {
		return nil, fmt.Errorf("%w: error decoding prompt: %w", types.ErrNetworkFailure, err)
	}
	return &detail, nil
}

// GetActivePrompt retrieves the active prompt. When the backend returns only
// the text, the version is reported as -1.
func (c *APIClient) GetActivePrompt(ctx context.Context) (*types.PromptDetail, error) {
	envelope, err := c.doPrompt(ctx, "get_active_prompt", http.MethodGet, routes.GetActivePromptURL(), "failed to fetch active prompt")
	if err != nil {
		return nil, err
	}
	if !envelope.HasValue() {
		return nil, fmt.Errorf("%w: no active prompt", types.ErrNotFound)
	}

	var text string
	if err := json.Unmarshal(envelope.Value, &text); err == nil {
		return &types.PromptDetail{
			PromptVersion: types.PromptVersion{Version: -1, IsActive: true},
			PromptText:    text,
		}, nil
	}

	var detail types.PromptDetail
	if err := json.Unmarshal(envelope.Value, &detail); err != nil {
		return nil, fmt.Errorf("%w: error decoding prompt: %w", types.ErrNetworkFailure, err)
	}
	return &detail, nil
}

// UpdatePrompt stores a new prompt version and returns its number, or -1 when
// the backend does not report one
func (c *APIClient) UpdatePrompt(ctx context.Context, promptText string) (int, error) {
	if err := types.ValidatePromptText(promptText); err != nil {
		return 0, err
	}

	envelope, err := c.doPrompt(ctx, "update_prompt", http.MethodPost, routes.UpdatePromptURL(promptText), "failed to update prompt")
	if err != nil {
		return 0, err
	}

	var message string
	if err := json.Unmarshal(envelope.Value, &message); err != nil {
		return -1, nil
	}
	match := updatedVersionPattern.FindStringSubmatch(message)
	if match == nil {
		return -1, nil
	}
	version, err := strconv.Atoi(match[1])
	if err != nil {
		return -1, nil
	}
	return version, nil
}

// RollbackPrompt makes a previous prompt version active again
func (c *APIClient) RollbackPrompt(ctx context.Context, version int) error {
	if version < 1 {
		return fmt.Errorf("%w: invalid prompt version %d", types.ErrValidation, version)
	}
	_, err := c.doPrompt(ctx, "rollback_prompt", http.MethodPost, routes.RollbackPromptURL(version), "failed to rollback prompt")
	return err
}
