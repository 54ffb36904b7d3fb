// Package http exposes pulse over HTTP with fiber and provides a typed
// client for the same routes.
package http

import (
	"time"

	"github.com/fwojciec/pulse"
)

// Route paths shared by the server and the client.
const (
	PathRoot                 = "/"
	PathHealth               = "/health"
	PathMetrics              = "/metrics"
	PathAPITest              = "/api/test"
	PathAPIStatus            = "/api/status"
	PathChat                 = "/api/chat"
	PathJiraTestConnection   = "/api/jira/test-connection"
	PathJiraActivity         = "/api/jira/user/:username/activity"
	PathGitHubTestConnection = "/api/github/test-connection"
	PathGitHubActivity       = "/api/github/user/:username/activity"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	pulse.ChatAnswer
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectionResponse is the body returned by the test-connection routes.
type ConnectionResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	User    *pulse.Account `json:"user,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body returned by GET /api/status.
type StatusResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Endpoints map[string]string `json:"endpoints"`
	Timestamp time.Time         `json:"timestamp"`
}

func endpoints() map[string]string {
	return map[string]string{
		"health":          "GET " + PathHealth,
		"chat":            "POST " + PathChat,
		"jira_test":       "GET " + PathJiraTestConnection,
		"jira_activity":   "GET " + PathJiraActivity,
		"github_test":     "GET " + PathGitHubTestConnection,
		"github_activity": "GET " + PathGitHubActivity,
	}
}
