// Package marketplace is the HTTP client for the remote task marketplace:
// listing open tasks, claiming them, submitting solutions, and keeping the
// agent's presence alive with heartbeats.
package marketplace

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

// TaskSummary is one unit of claimable work as the marketplace lists it.
type TaskSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      float64  `json:"reward,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Prompt renders the task as the seed prompt for the agent loop.
func (t TaskSummary) Prompt() string {
	var sb strings.Builder
	sb.WriteString(t.Title)
	if t.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(t.Description)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&sb, "\n\nTags: %s", strings.Join(t.Tags, ", "))
	}
	return sb.String()
}

// APIError is a non-success marketplace response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request is worth repeating. Rate limits,
// timeouts, and server errors are transient; everything else (including
// claim conflicts) is not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// IsConflict reports whether the error is a claim conflict (someone else got
// the task first). Conflicts are an expected race, not a failure.
func IsConflict(err error) bool {
	apierr, ok := err.(*APIError)
	return ok && apierr.StatusCode == http.StatusConflict
}

// Config parameterizes a marketplace client.
type Config struct {
	// BaseURL is the marketplace root, e.g. "https://tasks.example.com".
	BaseURL string

	// Token authenticates the agent. Sent as a bearer token.
	Token string

	// HTTPClient defaults to a client with a 30-second timeout.
	HTTPClient *http.Client
}

// Client talks to one marketplace. Safe for concurrent use: the worker's
// polling loop and heartbeat ticker share one instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a marketplace client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("marketplace: base URL is required")
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: httpClient,
	}, nil
}

// ListAvailable returns up to limit open tasks.
func (c *Client) ListAvailable(ctx context.Context, limit int) ([]TaskSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	url := fmt.Sprintf("%s/api/v1/tasks?status=open&limit=%d", c.baseURL, limit)

	var payload struct {
		Tasks []TaskSummary `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

// Claim reserves a task for this agent. A 409 means another agent claimed it
// first; callers check with IsConflict and move on.
func (c *Client) Claim(ctx context.Context, taskID string) error {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/claim", c.baseURL, taskID)
	return c.do(ctx, http.MethodPost, url, nil, nil)
}

// Submit posts a solution for a claimed task.
func (c *Client) Submit(ctx context.Context, taskID, content string) error {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/submissions", c.baseURL, taskID)
	body := map[string]string{"content": content}
	return c.do(ctx, http.MethodPost, url, body, nil)
}

// Heartbeat tells the marketplace the agent is still alive.
func (c *Client) Heartbeat(ctx context.Context) error {
	url := c.baseURL + "/api/v1/agents/heartbeat"
	return c.do(ctx, http.MethodPost, url, nil, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marketplace: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("marketplace: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("marketplace: decode response: %w", err)
		}
	}
	return nil
}
