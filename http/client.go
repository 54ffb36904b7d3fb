package http

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

	"github.com/fwojciec/pulse"
)

// DefaultClientTimeout bounds a single call; chat turns can take several
// model round-trips.
const DefaultClientTimeout = 60 * time.Second

// Client calls a pulse [Server].
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a [Client] for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks that the server is running.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, PathHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask sends one question to the chat endpoint. A configuration failure on
// the server is returned as an unsuccessful answer, not as an error.
func (c *Client) Ask(ctx context.Context, query string) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, PathChat, ChatRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueActivity fetches a user's issue-tracker activity.
func (c *Client) IssueActivity(ctx context.Context, username string) (*pulse.IssueActivity, error) {
	var out pulse.IssueActivity
	path := "/api/jira/user/" + url.PathEscape(username) + "/activity"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RepoActivity fetches a user's repo-hosting activity.
func (c *Client) RepoActivity(ctx context.Context, login string) (*pulse.RepoActivity, error) {
	var out pulse.RepoActivity
	path := "/api/github/user/" + url.PathEscape(login) + "/activity"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestConnection asks the server to verify its credentials for system.
func (c *Client) TestConnection(ctx context.Context, system pulse.System) (*ConnectionResponse, error) {
	path := PathJiraTestConnection
	if system == pulse.SystemRepos {
		path = PathGitHubTestConnection
	}
	var out ConnectionResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil && out.Status == "" {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("http: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusServiceUnavailable && path == PathChat:
	case resp.StatusCode == http.StatusBadRequest && strings.HasSuffix(path, "/test-connection"):
		_ = json.Unmarshal(raw, out)
		return fmt.Errorf("http: HTTP %d", resp.StatusCode)
	default:
		return parseHTTPError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("http: decode response: %w", err)
	}
	return nil
}

func parseHTTPError(status int, body []byte) error {
	var e ErrorResponse
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		msg = e.Error
	}
	if status == http.StatusNotFound && msg != "" {
		return fmt.Errorf("http: %s: %w", msg, pulse.ErrUserNotFound)
	}
	return fmt.Errorf("http: HTTP %d: %s", status, msg)
}
