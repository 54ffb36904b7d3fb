package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ pulse.IssueTracker = (*Client)(nil)

// Client implements [pulse.IssueTracker] for JIRA Cloud.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a JIRA [Client] for the site at baseURL, authenticating with
// email and API token.
func New(baseURL, email, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether the base URL and credentials are all set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.email != "" && c.apiToken != ""
}

// TestConnection fetches the account that owns the credentials.
func (c *Client) TestConnection(ctx context.Context) (*pulse.Account, error) {
	var me apiUser
	if err := c.get(ctx, "/myself", nil, &me); err != nil {
		return nil, err
	}
	return &pulse.Account{ID: me.AccountID, DisplayName: me.DisplayName, Email: me.EmailAddress}, nil
}

// UserActivity returns the open issues assigned to username and the issues
// updated in the last seven days. username may be an email or display name.
func (c *Client) UserActivity(ctx context.Context, username string) (*pulse.IssueActivity, error) {
	user, err := c.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	current, err := c.search(ctx, fmt.Sprintf(`assignee = "%s" AND status != Done ORDER BY updated DESC`, user.AccountID), maxAssigned)
	if err != nil {
		return nil, err
	}
	recent, err := c.search(ctx, fmt.Sprintf(`assignee = "%s" AND updated >= -7d ORDER BY updated DESC`, user.AccountID), maxRecent)
	if err != nil {
		return nil, err
	}

	activity := &pulse.IssueActivity{
		User: pulse.IssueUser{
			Username:    username,
			DisplayName: user.DisplayName,
			AccountID:   user.AccountID,
		},
		Summary: pulse.IssueSummary{
			TotalAssignedIssues: len(current),
			RecentActivityCount: len(recent),
			StatusBreakdown:     map[string]int{},
		},
		CurrentIssues:  make([]pulse.Issue, 0, min(len(current), keepCurrentIssues)),
		RecentActivity: make([]pulse.IssueUpdate, 0, min(len(recent), keepRecentIssues)),
	}
	for i, is := range current {
		status := is.Fields.Status.name()
		activity.Summary.StatusBreakdown[status]++
		if i < keepCurrentIssues {
			activity.CurrentIssues = append(activity.CurrentIssues, pulse.Issue{
				Key:      is.Key,
				Summary:  is.Fields.Summary,
				Status:   status,
				Priority: is.Fields.Priority.name(),
				Updated:  is.Fields.Updated.Time,
				Created:  is.Fields.Created.Time,
			})
		}
	}
	for _, is := range recent[:min(len(recent), keepRecentIssues)] {
		activity.RecentActivity = append(activity.RecentActivity, pulse.IssueUpdate{
			Key:     is.Key,
			Summary: is.Fields.Summary,
			Status:  is.Fields.Status.name(),
			Updated: is.Fields.Updated.Time,
		})
	}
	if len(current) == 0 && len(recent) == 0 {
		activity.Message = fmt.Sprintf("%s has no assigned issues or recent activity in JIRA.", user.DisplayName)
	}
	return activity, nil
}

// findUser prefers an exact email or display-name match and falls back to
// the first active account.
func (c *Client) findUser(ctx context.Context, username string) (apiUser, error) {
	var users []apiUser
	if err := c.get(ctx, "/user/search", url.Values{"query": {username}}, &users); err != nil {
		return apiUser{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.EmailAddress, username) || strings.EqualFold(u.DisplayName, username) {
			return u, nil
		}
	}
	for _, u := range users {
		if u.Active {
			return u, nil
		}
	}
	return apiUser{}, fmt.Errorf("jira: user '%s' not found in JIRA: %w", username, pulse.ErrUserNotFound)
}

func (c *Client) search(ctx context.Context, jql string, limit int) ([]apiIssue, error) {
	var resp apiSearchResponse
	q := url.Values{
		"jql":        {jql},
		"maxResults": {fmt.Sprint(limit)},
		"fields":     {issueFields},
	}
	if err := c.get(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if !c.Configured() {
		return fmt.Errorf("jira: base URL, email and API token are required: %w", pulse.ErrNotConfigured)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + apiPath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("jira: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("jira request failed")
		return fmt.Errorf("jira: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := parseHTTPError(resp)
		c.logger.Warn().Err(err).Str("path", path).Int("status", resp.StatusCode).Msg("jira request failed")
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jira: decode %s: %w", path, err)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.New("jira: authentication failed, check JIRA credentials")
	case http.StatusNotFound:
		return errors.New("jira: resource not found in JIRA")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("jira: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if len(apiErr.ErrorMessages) > 0 {
			return fmt.Errorf("jira: HTTP %d: %s", resp.StatusCode, apiErr.ErrorMessages[0])
		}
	}
	return fmt.Errorf("jira: HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
