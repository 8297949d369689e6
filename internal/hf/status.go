// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// MODEL STATUS
// =============================================================================

// ModelStatus describes the deployment state of a hosted model.
type ModelStatus struct {
	Loaded      bool   `json:"loaded"`
	State       string `json:"state"`
	ComputeType string `json:"compute_type"`
	Framework   string `json:"framework"`
}

// IsReady returns true if the model can serve requests without a cold
// start wait.
func (s *ModelStatus) IsReady() bool {
	return s.Loaded
}

// ModelStatus queries the deployment state of a model. The status endpoint
// lives on the API origin next to the models prefix.
func (c *Client) ModelStatus(ctx context.Context, modelID string) (*ModelStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.statusURL(modelID)
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body, resp.Header)
	}

	var status ModelStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}

// statusURL derives the status endpoint from the models base URL.
func (c *Client) statusURL(modelID string) string {
	origin := strings.TrimSuffix(c.baseURL, "/models")
	return origin + "/status/" + modelID
}

// =============================================================================
// TOKEN VERIFICATION
// =============================================================================

// Identity is the Hub account a token belongs to.
type Identity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// WhoAmI verifies the configured token against the Hub and returns the
// account it belongs to. Used by setup and status to check a token
// without spending a generation request.
func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.hubURL+"/api/whoami-v2", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body, resp.Header)
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse identity response: %w", err)
	}
	return &identity, nil
}
