package pulse

import (
	"context"
	"time"
)

// IssueTracker fetches a person's activity from the issue-tracking service.
type IssueTracker interface {
	UserActivity(ctx context.Context, username string) (*IssueActivity, error)
	TestConnection(ctx context.Context) (*Account, error)
}

// RepoHost fetches a person's activity from the source-code hosting service.
type RepoHost interface {
	UserActivity(ctx context.Context, login string) (*RepoActivity, error)
	TestConnection(ctx context.Context) (*Account, error)
}

// Account identifies the credential owner reported by a connection test.
type Account struct {
	ID          string `json:"account_id,omitempty"`
	Login       string `json:"login,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	PublicRepos int    `json:"public_repos,omitempty"`
}

// IssueActivity summarizes a user's issue-tracker work.
type IssueActivity struct {
	User           IssueUser     `json:"user"`
	Summary        IssueSummary  `json:"summary"`
	CurrentIssues  []Issue       `json:"current_issues"`
	RecentActivity []IssueUpdate `json:"recent_activity"`
	Message        string        `json:"message,omitempty"`
}

// IssueUser is the tracker account an activity summary belongs to.
type IssueUser struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AccountID   string `json:"account_id"`
}

// IssueSummary holds aggregate counts.
type IssueSummary struct {
	TotalAssignedIssues int            `json:"total_assigned_issues"`
	RecentActivityCount int            `json:"recent_activity_count"`
	StatusBreakdown     map[string]int `json:"status_breakdown"`
}

// Issue is an open issue assigned to the user.
type Issue struct {
	Key      string    `json:"key"`
	Summary  string    `json:"summary"`
	Status   string    `json:"status"`
	Priority string    `json:"priority"`
	Updated  time.Time `json:"updated"`
	Created  time.Time `json:"created"`
}

// IssueUpdate is an issue touched recently.
type IssueUpdate struct {
	Key     string    `json:"key"`
	Summary string    `json:"summary"`
	Status  string    `json:"status"`
	Updated time.Time `json:"updated"`
}

// RepoActivity summarizes a user's source-hosting work.
type RepoActivity struct {
	User          RepoUser      `json:"user"`
	Summary       RepoSummary   `json:"summary"`
	RecentCommits []Commit      `json:"recent_commits"`
	Repositories  []Repository  `json:"repositories"`
	PullRequests  []PullRequest `json:"pull_requests"`
}

// RepoUser is the hosting account an activity summary belongs to.
type RepoUser struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	PublicRepos int    `json:"public_repos"`
}

// RepoSummary holds aggregate counts. The Recent* fields cover the last
// seven days.
type RepoSummary struct {
	TotalRepositories int `json:"total_repositories"`
	TotalCommits      int `json:"total_commits"`
	TotalPullRequests int `json:"total_pull_requests"`
	RecentCommits     int `json:"recent_commits_7d"`
	RecentPRs         int `json:"recent_prs_7d"`
}

// Commit is a pushed commit.
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	Repository string    `json:"repository"`
	Date       time.Time `json:"date"`
}

// Repository is a repository owned by the user.
type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	UpdatedAt   time.Time `json:"updated_at"`
	Private     bool      `json:"private"`
}

// PullRequest is a pull request authored by the user.
type PullRequest struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	Repository string    `json:"repository"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
