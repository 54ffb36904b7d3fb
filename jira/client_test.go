package jira_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/jira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesJSON(n int, status string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"key":"PROJ-%d","fields":{"summary":"Task %d","status":{"name":%q},"priority":{"name":"High"},"updated":"2024-01-15T10:30:00.000+0000","created":"2024-01-10T08:00:00.000+0000"}}`, i+1, i+1, status)
	}
	return fmt.Sprintf(`{"total":%d,"issues":[%s]}`, n, strings.Join(parts, ","))
}

// newServer fakes the JIRA endpoints used by the client.
func newServer(t *testing.T, users string, current, recent string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@company.com", user)
		assert.Equal(t, "token", pass)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/rest/api/3/user/search":
			_, _ = w.Write([]byte(users))
		case "/rest/api/3/search":
			jql := r.URL.Query().Get("jql")
			assert.Equal(t, "key,summary,status,priority,updated,created", r.URL.Query().Get("fields"))
			if strings.Contains(jql, "status != Done") {
				assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
				_, _ = w.Write([]byte(current))
				return
			}
			assert.Contains(t, jql, "updated >= -7d")
			assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
			_, _ = w.Write([]byte(recent))
		case "/rest/api/3/myself":
			_, _ = w.Write([]byte(`{"accountId":"bot-1","displayName":"Pulse Bot","emailAddress":"bot@company.com"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_UserActivity(t *testing.T) {
	t.Parallel()

	t.Run("summarizes current and recent issues", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t,
			`[{"accountId":"other","displayName":"Other","emailAddress":"other@company.com","active":true},
			  {"accountId":"acc-1","displayName":"Sarah Smith","emailAddress":"sarah@company.com","active":true}]`,
			issuesJSON(12, "In Progress"),
			issuesJSON(7, "Done"),
		)
		client := jira.New(srv.URL, "bot@company.com", "token")

		got, err := client.UserActivity(context.Background(), "sarah@company.com")
		require.NoError(t, err)

		assert.Equal(t, pulse.IssueUser{Username: "sarah@company.com", DisplayName: "Sarah Smith", AccountID: "acc-1"}, got.User)
		assert.Equal(t, 12, got.Summary.TotalAssignedIssues)
		assert.Equal(t, 7, got.Summary.RecentActivityCount)
		assert.Equal(t, map[string]int{"In Progress": 12}, got.Summary.StatusBreakdown)
		assert.Len(t, got.CurrentIssues, 10)
		assert.Len(t, got.RecentActivity, 5)
		assert.Empty(t, got.Message)

		first := got.CurrentIssues[0]
		assert.Equal(t, "PROJ-1", first.Key)
		assert.Equal(t, "High", first.Priority)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), first.Updated.UTC())
	})

	t.Run("falls back to the first active user", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t,
			`[{"accountId":"gone","displayName":"Mike Old","active":false},{"accountId":"acc-2","displayName":"Mike Johnson","active":true}]`,
			issuesJSON(1, "To Do"),
			issuesJSON(0, ""),
		)
		client := jira.New(srv.URL, "bot@company.com", "token")

		got, err := client.UserActivity(context.Background(), "mike")
		require.NoError(t, err)
		assert.Equal(t, "acc-2", got.User.AccountID)
	})

	t.Run("explains an idle user", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t,
			`[{"accountId":"acc-3","displayName":"John Doe","emailAddress":"john@company.com","active":true}]`,
			issuesJSON(0, ""),
			issuesJSON(0, ""),
		)
		client := jira.New(srv.URL, "bot@company.com", "token")

		got, err := client.UserActivity(context.Background(), "john@company.com")
		require.NoError(t, err)
		assert.Equal(t, "John Doe has no assigned issues or recent activity in JIRA.", got.Message)
		assert.Empty(t, got.CurrentIssues)
		assert.NotNil(t, got.CurrentIssues)
		assert.Empty(t, got.Summary.StatusBreakdown)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, `[]`, issuesJSON(0, ""), issuesJSON(0, ""))
		client := jira.New(srv.URL, "bot@company.com", "token")

		_, err := client.UserActivity(context.Background(), "nonexistent")
		assert.ErrorIs(t, err, pulse.ErrUserNotFound)
		assert.Contains(t, err.Error(), "'nonexistent'")
	})

	t.Run("missing configuration", func(t *testing.T) {
		t.Parallel()
		client := jira.New("", "", "")
		assert.False(t, client.Configured())
		_, err := client.UserActivity(context.Background(), "sarah")
		assert.ErrorIs(t, err, pulse.ErrNotConfigured)
	})

	t.Run("request timeout", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()
		client := jira.New(srv.URL, "bot@company.com", "token", jira.WithTimeout(20*time.Millisecond))

		_, err := client.UserActivity(context.Background(), "sarah")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_TestConnection(t *testing.T) {
	t.Parallel()

	srv := newServer(t, `[]`, "", "")
	client := jira.New(srv.URL+"/", "bot@company.com", "token")

	got, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &pulse.Account{ID: "bot-1", DisplayName: "Pulse Bot", Email: "bot@company.com"}, got)
}

func TestClient_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, ``, "jira: authentication failed, check JIRA credentials"},
		{"not found", http.StatusNotFound, ``, "jira: resource not found in JIRA"},
		{"error messages", http.StatusBadRequest, `{"errorMessages":["The value 'x' does not exist for the field 'assignee'."]}`, "jira: HTTP 400: The value 'x' does not exist for the field 'assignee'."},
		{"plain body", http.StatusBadGateway, `upstream down`, "jira: HTTP 502: Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			client := jira.New(srv.URL, "bot@company.com", "token")

			_, err := client.TestConnection(context.Background())
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
			assert.Equal(t, pulse.ErrorKindAPI, pulse.KindOf(err))
		})
	}
}
