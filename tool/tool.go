// Package tool defines the callable tools offered to the language model and
// the executor that dispatches tool calls to the activity providers.
package tool

import "github.com/fwojciec/pulse"

// Tool names.
const (
	IssueActivity = "get_issue_activity"
	RepoActivity  = "get_repo_activity"
)

// Specs returns the tool definitions in registration order. The returned
// slice is freshly allocated; callers may modify it.
func Specs() []pulse.ToolSpec {
	return []pulse.ToolSpec{
		{
			Name: IssueActivity,
			Description: "Get JIRA activity for a person: open assigned issues, status breakdown and " +
				"issues updated in the last 7 days. Accepts a name (e.g. 'John', 'Sarah'), email or display name.",
			Parameters: identifierSchema("Name, username, or email of the person to look up in JIRA"),
		},
		{
			Name: RepoActivity,
			Description: "Get GitHub activity for a person: recent commits, repositories and pull requests. " +
				"Accepts a name (e.g. 'John', 'Sarah') or GitHub username.",
			Parameters: identifierSchema("Name or GitHub username of the person to look up"),
		},
	}
}

func identifierSchema(desc string) pulse.ParameterSchema {
	return pulse.ParameterSchema{
		Properties: map[string]pulse.Property{
			"identifier": {Type: "string", Description: desc},
		},
		Required: []string{"identifier"},
	}
}
