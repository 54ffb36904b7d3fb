package github

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
var _ pulse.RepoHost = (*Client)(nil)

// Client implements [pulse.RepoHost] for GitHub.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL, for GitHub Enterprise or httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithClock sets the time source used for the seven-day activity window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a GitHub [Client]. An empty token makes unauthenticated
// requests, which GitHub rate-limits heavily.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether a token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

// TestConnection fetches the account that owns the token.
func (c *Client) TestConnection(ctx context.Context) (*pulse.Account, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("github: token is required: %w", pulse.ErrNotConfigured)
	}
	var u apiUser
	if err := c.get(ctx, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &pulse.Account{Login: u.Login, DisplayName: u.Name, Email: u.Email, PublicRepos: u.PublicRepos}, nil
}

// UserActivity returns the profile, repositories, pushed commits and pull
// requests of login.
func (c *Client) UserActivity(ctx context.Context, login string) (*pulse.RepoActivity, error) {
	var profile apiUser
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &profile); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, fmt.Errorf("github: user '%s' not found on GitHub: %w", login, pulse.ErrUserNotFound)
		}
		return nil, err
	}

	repos, err := c.repositories(ctx, login)
	if err != nil {
		return nil, err
	}
	commits, err := c.commits(ctx, login)
	if err != nil {
		return nil, err
	}
	prs, err := c.pullRequests(ctx, login)
	if err != nil {
		return nil, err
	}

	cutoff := c.now().Add(-recentWindow)
	name := profile.Name
	if name == "" {
		name = login
	}
	activity := &pulse.RepoActivity{
		User: pulse.RepoUser{
			Username:    login,
			Name:        name,
			Company:     profile.Company,
			PublicRepos: profile.PublicRepos,
		},
		Summary: pulse.RepoSummary{
			TotalRepositories: len(repos),
			TotalCommits:      len(commits),
			TotalPullRequests: len(prs),
		},
		RecentCommits: commits[:min(len(commits), keepCommits)],
		Repositories:  repos[:min(len(repos), keepRepos)],
		PullRequests:  prs[:min(len(prs), keepPRs)],
	}
	for _, cm := range commits {
		if cm.Date.After(cutoff) {
			activity.Summary.RecentCommits++
		}
	}
	for _, pr := range prs {
		if pr.UpdatedAt.After(cutoff) {
			activity.Summary.RecentPRs++
		}
	}
	return activity, nil
}

func (c *Client) repositories(ctx context.Context, login string) ([]pulse.Repository, error) {
	var raw []apiRepo
	q := url.Values{"sort": {"updated"}, "per_page": {fmt.Sprint(reposPerPage)}}
	if err := c.get(ctx, "/users/"+url.PathEscape(login)+"/repos", q, &raw); err != nil {
		return nil, err
	}
	repos := make([]pulse.Repository, len(raw))
	for i, r := range raw {
		desc := truncate(r.Description, maxDescription)
		if desc == "" {
			desc = "No description"
		}
		lang := r.Language
		if lang == "" {
			lang = "Unknown"
		}
		repos[i] = pulse.Repository{
			Name:        r.Name,
			FullName:    r.FullName,
			Description: desc,
			Language:    lang,
			UpdatedAt:   r.UpdatedAt,
			Private:     r.Private,
		}
	}
	return repos, nil
}

func (c *Client) commits(ctx context.Context, login string) ([]pulse.Commit, error) {
	var events []apiEvent
	q := url.Values{"per_page": {fmt.Sprint(eventsPerPage)}}
	if err := c.get(ctx, "/users/"+url.PathEscape(login)+"/events", q, &events); err != nil {
		return nil, err
	}
	commits := []pulse.Commit{}
	for _, ev := range events {
		if ev.Type != "PushEvent" {
			continue
		}
		for _, cm := range ev.Payload.Commits {
			if len(commits) == maxCommits {
				return commits, nil
			}
			commits = append(commits, pulse.Commit{
				SHA:        truncate(cm.SHA, shaLength),
				Message:    truncate(cm.Message, maxMessageLen),
				Repository: ev.Repo.Name,
				Date:       ev.CreatedAt,
			})
		}
	}
	return commits, nil
}

func (c *Client) pullRequests(ctx context.Context, login string) ([]pulse.PullRequest, error) {
	var resp apiSearchResponse
	q := url.Values{
		"q":        {"type:pr author:" + login},
		"sort":     {"updated"},
		"per_page": {fmt.Sprint(prsPerPage)},
	}
	if err := c.get(ctx, "/search/issues", q, &resp); err != nil {
		return nil, err
	}
	prs := make([]pulse.PullRequest, len(resp.Items))
	for i, it := range resp.Items {
		prs[i] = pulse.PullRequest{
			Number:     it.Number,
			Title:      it.Title,
			State:      it.State,
			Repository: lastSegment(it.RepositoryURL),
			CreatedAt:  it.CreatedAt,
			UpdatedAt:  it.UpdatedAt,
		}
	}
	return prs, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("github: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("github request failed")
		return fmt.Errorf("github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := parseHTTPError(resp)
		c.logger.Warn().Err(err).Str("path", path).Int("status", resp.StatusCode).Msg("github request failed")
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: decode %s: %w", path, err)
	}
	return nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	return "github: " + e.msg
}

func parseHTTPError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &statusError{resp.StatusCode, "authentication failed, check token"}
	case http.StatusForbidden:
		return &statusError{resp.StatusCode, "rate limit exceeded"}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &statusError{resp.StatusCode, fmt.Sprintf("HTTP %d (failed to read body: %v)", resp.StatusCode, err)}
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &statusError{resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, apiErr.Message)}
	}
	return &statusError{resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
}
