// Package pipelineclient calls the API-key protected pipeline endpoints of a
// running budgetapp server.
package pipelineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to /api/v1/pipeline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. A nil httpClient uses a client with a one minute timeout.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SummaryRequest mirrors the body of POST /pipeline/summaries/monthly.
type SummaryRequest struct {
	AsOf   *time.Time `json:"as_of,omitempty"`
	UserID string     `json:"user_id,omitempty"`
	Year   int        `json:"year,omitempty"`
	Month  int        `json:"month,omitempty"`
}

// RecordMonthlySummaries asks the server to run the monthly snapshot job and
// returns how many summaries it recorded.
func (c *Client) RecordMonthlySummaries(ctx context.Context, body SummaryRequest) (int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/pipeline/summaries/monthly", bytes.NewReader(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("recording summaries: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("recording summaries: unexpected status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var result struct {
		SummariesRecorded int `json:"summaries_recorded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding summaries response: %w", err)
	}
	return result.SummariesRecorded, nil
}

// errorMessage extracts error.message from an error body, if present.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<16)).Decode(&payload); err != nil {
		return "no error details"
	}
	return payload.Error.Code + ": " + payload.Error.Message
}
