package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Compile-time interface check.
var _ pulse.ToolExecutor = (*Executor)(nil)

type fetchFunc func(ctx context.Context, identifier string) (any, error)

type handler struct {
	system  pulse.System
	service string // name used in user-facing messages
	fetch   fetchFunc
}

// Executor dispatches tool calls to the issue tracker and the repo host.
// It holds no mutable state; a single Executor serves concurrent calls.
type Executor struct {
	resolver pulse.Resolver
	timeout  time.Duration
	logger   zerolog.Logger
	handlers map[string]handler
}

// Option configures an Executor.
type Option func(*Executor)

// WithResolver maps human-friendly identifiers through r before calling a
// provider. Without a resolver identifiers are passed through unchanged.
func WithResolver(r pulse.Resolver) Option {
	return func(e *Executor) {
		e.resolver = r
	}
}

// WithTimeout sets the per-call provider timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor creates an Executor backed by the given providers.
func NewExecutor(issues pulse.IssueTracker, repos pulse.RepoHost, opts ...Option) *Executor {
	e := &Executor{
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[string]handler{
		IssueActivity: {
			system:  pulse.SystemIssues,
			service: "JIRA",
			fetch: func(ctx context.Context, id string) (any, error) {
				return issues.UserActivity(ctx, id)
			},
		},
		RepoActivity: {
			system:  pulse.SystemRepos,
			service: "GitHub",
			fetch: func(ctx context.Context, id string) (any, error) {
				return repos.UserActivity(ctx, id)
			},
		},
	}
	return e
}

// Execute runs the named tool. Unknown names and provider failures are
// reported in the returned envelope. An error is returned only when args is
// not a JSON object or the provider data cannot be encoded.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
	h, ok := e.handlers[name]
	if !ok {
		return pulse.FailedToolResult(pulse.ErrorKindUnknownFunction, fmt.Sprintf("Unknown function: %s", name)), nil
	}

	var params map[string]json.RawMessage
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("tool: decode %s arguments: %w: %w", name, pulse.ErrValidation, err)
		}
	}

	identifier, err := identifierArg(params)
	if err != nil {
		return pulse.FailedToolResult(pulse.ErrorKindAPI, err.Error()), nil
	}

	start := time.Now()
	result, err := e.run(ctx, h, identifier)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: %w", name, err)
	}
	e.logger.Debug().
		Str("tool", name).
		Str("identifier", identifier).
		Bool("success", result.Success).
		Str("error_kind", string(result.ErrorKind)).
		Dur("duration", time.Since(start)).
		Msg("tool executed")
	return result, nil
}

func (e *Executor) run(ctx context.Context, h handler, identifier string) (*pulse.ToolResult, error) {
	target := identifier
	if e.resolver != nil {
		resolved, ok := e.resolver.Resolve(identifier, h.system)
		if !ok {
			msg := fmt.Sprintf("Could not find %s information for '%s'. Available users: %s",
				h.service, identifier, strings.Join(e.resolver.Known(), ", "))
			return pulse.FailedToolResult(pulse.ErrorKindUserNotFound, msg), nil
		}
		target = resolved
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := h.fetch(ctx, target)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s request timed out after %s: %w", h.service, e.timeout, err)
		}
		e.logger.Warn().Err(err).Str("service", h.service).Str("identifier", target).Msg("provider request failed")
		kind := pulse.ErrorKindAPI
		if pulse.KindOf(err) == pulse.ErrorKindUserNotFound {
			kind = pulse.ErrorKindUserNotFound
		}
		return pulse.FailedToolResult(kind, err.Error()), nil
	}

	return pulse.NewToolResult(data)
}

func identifierArg(params map[string]json.RawMessage) (string, error) {
	raw, ok := params["identifier"]
	if !ok {
		return "", errors.New("missing required argument: identifier")
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("argument identifier must be a string: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("argument identifier must not be empty")
	}
	return id, nil
}
