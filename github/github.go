// Package github implements [pulse.RepoHost] for the GitHub REST API.
package github

import (
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	userAgent      = "pulse"
	recentWindow   = 7 * 24 * time.Hour

	reposPerPage  = 20
	eventsPerPage = 30
	prsPerPage    = 15
	maxCommits    = 20

	keepCommits = 10
	keepRepos   = 10
	keepPRs     = 5

	shaLength      = 7
	maxMessageLen  = 100
	maxDescription = 100
)

type apiUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	PublicRepos int    `json:"public_repos"`
}

type apiRepo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	UpdatedAt   time.Time `json:"updated_at"`
	Private     bool      `json:"private"`
}

type apiEvent struct {
	Type      string          `json:"type"`
	Repo      apiEventRepo    `json:"repo"`
	Payload   apiEventPayload `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type apiEventRepo struct {
	Name string `json:"name"`
}

type apiEventPayload struct {
	Commits []apiCommit `json:"commits"`
}

type apiCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

type apiSearchResponse struct {
	TotalCount int        `json:"total_count"`
	Items      []apiIssue `json:"items"`
}

type apiIssue struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	State         string    `json:"state"`
	RepositoryURL string    `json:"repository_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// apiErrorResponse is the JSON body returned on non-2xx responses.
type apiErrorResponse struct {
	Message string `json:"message"`
}

// truncate shortens s to at most n grapheme clusters.
func truncate(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	var b strings.Builder
	for i := 0; i < n && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return b.String()
}

// lastSegment returns the final path element of a URL.
func lastSegment(u string) string {
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		return u[i+1:]
	}
	return u
}
