package mock

import (
	"context"

	"github.com/fwojciec/pulse"
)

// Interface compliance checks.
var (
	_ pulse.IssueTracker = (*IssueTracker)(nil)
	_ pulse.RepoHost     = (*RepoHost)(nil)
)

// IssueTracker is a test double for pulse.IssueTracker.
type IssueTracker struct {
	UserActivityFn   func(ctx context.Context, username string) (*pulse.IssueActivity, error)
	TestConnectionFn func(ctx context.Context) (*pulse.Account, error)
}

// UserActivity delegates to UserActivityFn.
func (m *IssueTracker) UserActivity(ctx context.Context, username string) (*pulse.IssueActivity, error) {
	return m.UserActivityFn(ctx, username)
}

// TestConnection delegates to TestConnectionFn.
func (m *IssueTracker) TestConnection(ctx context.Context) (*pulse.Account, error) {
	return m.TestConnectionFn(ctx)
}

// RepoHost is a test double for pulse.RepoHost.
type RepoHost struct {
	UserActivityFn   func(ctx context.Context, login string) (*pulse.RepoActivity, error)
	TestConnectionFn func(ctx context.Context) (*pulse.Account, error)
}

// UserActivity delegates to UserActivityFn.
func (m *RepoHost) UserActivity(ctx context.Context, login string) (*pulse.RepoActivity, error) {
	return m.UserActivityFn(ctx, login)
}

// TestConnection delegates to TestConnectionFn.
func (m *RepoHost) TestConnection(ctx context.Context) (*pulse.Account, error) {
	return m.TestConnectionFn(ctx)
}
