package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dt-pm-tools/r2c/internal/config"
)

// appURL is where tasks are opened in the browser.
const appURL = "https://app.clickup.com"

// Client is a ClickUp REST API v2 client scoped to one team.
type Client struct {
	baseURL    string
	apiKey     string
	teamID     string
	httpClient *http.Client
}

// NewClient creates a new ClickUp client from the given config.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.ClickUpURL, "/"),
		apiKey:     cfg.ClickUpAPIKey,
		teamID:     cfg.ClickUpTeamID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// TaskURL returns the browser URL of a task.
func TaskURL(taskID string) string {
	return appURL + "/t/" + taskID
}

// CreateTask creates a task in the given list.
func (c *Client) CreateTask(ctx context.Context, listID string, task TaskRequest) (*Task, error) {
	endpoint := fmt.Sprintf("%s/list/%s/task?%s", c.baseURL, url.PathEscape(listID), c.teamQuery())

	var created Task
	body := createTaskBody{TaskRequest: task, MarkdownDescription: task.Description}
	if err := c.post(ctx, endpoint, body, &created); err != nil {
		return nil, err
	}
	if created.URL == "" && created.ID != "" {
		created.URL = TaskURL(created.ID)
	}
	return &created, nil
}

// SetCustomField sets the value of a custom field on a task.
func (c *Client) SetCustomField(ctx context.Context, taskID, fieldID string, value any) error {
	endpoint := fmt.Sprintf("%s/task/%s/field/%s?%s",
		c.baseURL, url.PathEscape(taskID), url.PathEscape(fieldID), c.teamQuery())
	return c.post(ctx, endpoint, fieldValue{Value: value}, nil)
}

func (c *Client) teamQuery() string {
	return url.Values{"team_id": {c.teamID}}.Encode()
}

func (c *Client) post(ctx context.Context, endpoint string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
