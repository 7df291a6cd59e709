package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dt-pm-tools/r2c/internal/config"
)

// Client is a Redmine REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Redmine client from the given config.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.RedmineURL, "/"),
		apiKey:     cfg.RedmineAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IssueURL returns the browser URL of an issue.
func (c *Client) IssueURL(id int) string {
	return fmt.Sprintf("%s/issues/%d", c.baseURL, id)
}

// GetIssue fetches a single issue by ID.
func (c *Client) GetIssue(ctx context.Context, id int) (*Issue, error) {
	url := fmt.Sprintf("%s/issues/%d.json", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env issueEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &env.Issue, nil
}

// UpdateIssue changes an issue's status and/or adds a journal note.
func (c *Client) UpdateIssue(ctx context.Context, id int, update IssueUpdate) error {
	url := fmt.Sprintf("%s/issues/%d.json", c.baseURL, id)

	data, err := json.Marshal(UpdatePayload{Issue: update})
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
