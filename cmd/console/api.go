package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func getSession(client *http.Client, baseURL string, sessionID uuid.UUID) (*state.SessionState, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/session/%s", baseURL, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get session: %s", errorResp.Error)
	}

	var gs state.SessionState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &gs, nil
}

// CreateSessionRequest matches the API request structure
type CreateSessionRequest struct {
	Name           string   `json:"name"`
	Ruleset        string   `json:"ruleset,omitempty"`
	EnabledSystems []string `json:"enabled_systems,omitempty"`
}

func createSession(client *http.Client, baseURL string, name string) (*state.SessionState, error) {
	req := CreateSessionRequest{
		Name:    name,
		Ruleset: "5e",
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/session",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create session: %s", errorResp.Error)
	}

	var gs state.SessionState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}

	return &gs, nil
}

func sendTurn(client *http.Client, baseURL string, sessionID uuid.UUID, message string) (*chat.TurnResponse, error) {
	turnReq := chat.TurnRequest{
		SessionID: sessionID,
		Message:   message,
	}

	jsonData, err := json.Marshal(turnReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/turn",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("turn request failed: %s", errorResp.Error)
	}

	var turnResp chat.TurnResponse
	if err := json.Unmarshal(body, &turnResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &turnResp, nil
}
