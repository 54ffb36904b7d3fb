// Package jira implements [pulse.IssueTracker] for the JIRA Cloud REST API v3.
package jira

import (
	"strings"
	"time"
)

const (
	apiPath           = "/rest/api/3"
	defaultTimeout    = 10 * time.Second
	maxAssigned       = 20
	maxRecent         = 10
	keepCurrentIssues = 10
	keepRecentIssues  = 5
	issueFields       = "key,summary,status,priority,updated,created"
)

type apiUser struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

type apiSearchResponse struct {
	Total  int        `json:"total"`
	Issues []apiIssue `json:"issues"`
}

type apiIssue struct {
	Key    string         `json:"key"`
	Fields apiIssueFields `json:"fields"`
}

type apiIssueFields struct {
	Summary  string    `json:"summary"`
	Status   *apiNamed `json:"status"`
	Priority *apiNamed `json:"priority"`
	Updated  apiTime   `json:"updated"`
	Created  apiTime   `json:"created"`
}

type apiNamed struct {
	Name string `json:"name"`
}

func (n *apiNamed) name() string {
	if n == nil || n.Name == "" {
		return "None"
	}
	return n.Name
}

// apiErrorResponse is the JSON body returned on non-2xx responses.
type apiErrorResponse struct {
	ErrorMessages []string `json:"errorMessages"`
}

// apiTime parses JIRA timestamps, which use a numeric zone offset without a
// colon (2024-01-15T10:30:00.000+0000).
type apiTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	var err error
	for _, layout := range timeLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}
