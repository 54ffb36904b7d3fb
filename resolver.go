package pulse

// System names an external service an identifier can be resolved for.
type System string

const (
	SystemIssues System = "issues"
	SystemRepos  System = "repos"
)

// User is one entry of the alias mapping.
type User struct {
	Key    string `json:"-"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	GitHub string `json:"github"`
}

// Resolver maps a human-friendly name or email to a system-specific identifier.
type Resolver interface {
	// Resolve returns the identifier for system, or false when no user matches.
	Resolve(identifier string, system System) (string, bool)
	// Known lists the users the resolver can match, for error messages.
	Known() []string
}
