package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/chat"
	"github.com/fwojciec/pulse/mock"
	"github.com/fwojciec/pulse/openai"
	"github.com/fwojciec/pulse/tool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a completer that replies with responses in order and
// records every request it receives.
func scripted(t *testing.T, responses ...pulse.AssistantMessage) (*mock.Completer, *[]pulse.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []pulse.Request
	)
	c := &mock.Completer{
		CompleteFn: func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
			mu.Lock()
			defer mu.Unlock()
			require.NoError(t, req.Validate())
			reqs = append(reqs, req)
			if len(reqs) > len(responses) {
				t.Fatalf("unexpected completion request #%d", len(reqs))
			}
			return responses[len(reqs)-1], nil
		},
	}
	return c, &reqs
}

func call(id, name, identifier string) pulse.ToolCall {
	args, _ := json.Marshal(map[string]string{"identifier": identifier})
	return pulse.ToolCall{ID: id, Name: name, Arguments: args}
}

// team builds a real executor over fake providers that know sarah and mike.
func team() *tool.Executor {
	issues := &mock.IssueTracker{
		UserActivityFn: func(ctx context.Context, username string) (*pulse.IssueActivity, error) {
			return &pulse.IssueActivity{
				User:          pulse.IssueUser{Username: username},
				Summary:       pulse.IssueSummary{TotalAssignedIssues: 2, StatusBreakdown: map[string]int{"In Progress": 2}},
				CurrentIssues: []pulse.Issue{{Key: "PROJ-1", Summary: "Fix login", Status: "In Progress"}},
			}, nil
		},
	}
	repos := &mock.RepoHost{
		UserActivityFn: func(ctx context.Context, login string) (*pulse.RepoActivity, error) {
			return &pulse.RepoActivity{
				User:          pulse.RepoUser{Username: login},
				RecentCommits: []pulse.Commit{{SHA: "abc1234", Message: "Add auth", Repository: login + "/api"}},
			}, nil
		},
	}
	resolver := &mock.Resolver{
		ResolveFn: func(identifier string, system pulse.System) (string, bool) {
			switch strings.ToLower(identifier) {
			case "sarah":
				if system == pulse.SystemIssues {
					return "sarah@company.com", true
				}
				return "sarahsmith", true
			case "mike":
				if system == pulse.SystemIssues {
					return "mike@company.com", true
				}
				return "mikejohnson", true
			}
			return "", false
		},
		KnownFn: func() []string { return []string{"mike: Mike Johnson", "sarah: Sarah Smith"} },
	}
	return tool.NewExecutor(issues, repos, tool.WithResolver(resolver))
}

func toolResults(t *testing.T, req pulse.Request) []pulse.ToolResultMessage {
	t.Helper()
	var out []pulse.ToolResultMessage
	for _, msg := range req.Messages {
		if m, ok := msg.(pulse.ToolResultMessage); ok {
			out = append(out, m)
		}
	}
	return out
}

func decodeResult(t *testing.T, m pulse.ToolResultMessage) pulse.ToolResult {
	t.Helper()
	var r pulse.ToolResult
	require.NoError(t, json.Unmarshal([]byte(m.Content), &r))
	return r
}

func TestOrchestrator_NoTools(t *testing.T) {
	t.Parallel()

	completer, reqs := scripted(t, pulse.AssistantMessage{Text: "Hello! I can tell you about team activity.", StopReason: pulse.StopEndTurn})
	o := chat.New(completer, &mock.ToolExecutor{})

	answer := o.Chat(context.Background(), "hi there")

	assert.True(t, answer.Success)
	assert.Equal(t, "Hello! I can tell you about team activity.", answer.Response)
	assert.Equal(t, []string{}, answer.ToolsUsed)
	require.Len(t, *reqs, 1)

	req := (*reqs)[0]
	assert.Equal(t, pulse.ToolChoiceAuto, req.ToolChoice)
	assert.Equal(t, tool.Specs(), req.Tools)
	assert.Equal(t, chat.SystemPrompt, req.SystemPrompt)
	assert.Equal(t, chat.DefaultMaxTokens, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, chat.DefaultTemperature, *req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hi there", req.Messages[0].(pulse.UserMessage).Text)
}

func TestOrchestrator_BroadQueryUsesBothTools(t *testing.T) {
	t.Parallel()

	completer, reqs := scripted(t,
		pulse.AssistantMessage{
			ToolCalls:  []pulse.ToolCall{call("call_1", tool.IssueActivity, "Sarah"), call("call_2", tool.RepoActivity, "Sarah")},
			StopReason: pulse.StopToolUse,
		},
		pulse.AssistantMessage{Text: "Sarah is fixing login (PROJ-1) and pushed 'Add auth'.", StopReason: pulse.StopEndTurn},
	)
	o := chat.New(completer, team())

	answer := o.Chat(context.Background(), "What is Sarah working on?")

	require.True(t, answer.Success, answer.Error)
	assert.Equal(t, []string{tool.IssueActivity, tool.RepoActivity}, answer.ToolsUsed)
	assert.Equal(t, "Sarah is fixing login (PROJ-1) and pushed 'Add auth'.", answer.Response)
	require.Len(t, *reqs, 2)

	final := (*reqs)[1]
	assert.Equal(t, pulse.ToolChoiceNone, final.ToolChoice)
	assert.NotEmpty(t, final.Tools)
	require.Len(t, final.Messages, 4)
	assert.IsType(t, pulse.UserMessage{}, final.Messages[0])
	assert.IsType(t, pulse.AssistantMessage{}, final.Messages[1])

	results := toolResults(t, final)
	require.Len(t, results, 2)
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Equal(t, "call_2", results[1].ToolCallID)

	var issues pulse.IssueActivity
	r := decodeResult(t, results[0])
	require.True(t, r.Success)
	require.NoError(t, json.Unmarshal(r.Data, &issues))
	assert.Equal(t, "sarah@company.com", issues.User.Username)

	var repos pulse.RepoActivity
	r = decodeResult(t, results[1])
	require.True(t, r.Success)
	require.NoError(t, json.Unmarshal(r.Data, &repos))
	assert.Equal(t, "sarahsmith", repos.User.Username)
}

func TestOrchestrator_NarrowQueryUsesOneTool(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		names []string
	)
	executor := &mock.ToolExecutor{
		ExecuteFn: func(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
			return team().Execute(ctx, name, args)
		},
	}
	completer, _ := scripted(t,
		pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{call("call_1", tool.IssueActivity, "Mike")}},
		pulse.AssistantMessage{Text: "Mike has 2 tickets in progress."},
	)
	o := chat.New(completer, executor)

	answer := o.Chat(context.Background(), "What JIRA tickets does Mike have?")

	require.True(t, answer.Success, answer.Error)
	assert.Equal(t, []string{tool.IssueActivity}, answer.ToolsUsed)
	assert.Equal(t, []string{tool.IssueActivity}, names)
}

func TestOrchestrator_UnknownPerson(t *testing.T) {
	t.Parallel()

	for _, name := range []string{tool.IssueActivity, tool.RepoActivity} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			completer, reqs := scripted(t,
				pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{call("call_1", name, "nonexistent")}},
				pulse.AssistantMessage{Text: "I could not find a person called 'nonexistent'."},
			)
			o := chat.New(completer, team())

			answer := o.Chat(context.Background(), "What is nonexistent doing?")

			require.True(t, answer.Success, answer.Error)
			assert.Equal(t, "I could not find a person called 'nonexistent'.", answer.Response)

			results := toolResults(t, (*reqs)[1])
			require.Len(t, results, 1)
			assert.True(t, results[0].IsError)
			r := decodeResult(t, results[0])
			assert.False(t, r.Success)
			assert.Equal(t, pulse.ErrorKindUserNotFound, r.ErrorKind)
			assert.Nil(t, r.Data)
		})
	}
}

func TestOrchestrator_UnknownToolIsReportedToModel(t *testing.T) {
	t.Parallel()

	completer, reqs := scripted(t,
		pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{{ID: "call_9", Name: "get_calendar", Arguments: json.RawMessage(`{}`)}}},
		pulse.AssistantMessage{Text: "I can't check calendars."},
	)
	o := chat.New(completer, team())

	answer := o.Chat(context.Background(), "Is Sarah in a meeting?")

	require.True(t, answer.Success)
	assert.Equal(t, []string{"get_calendar"}, answer.ToolsUsed)
	r := decodeResult(t, toolResults(t, (*reqs)[1])[0])
	assert.Equal(t, pulse.ErrorKindUnknownFunction, r.ErrorKind)
	assert.Equal(t, "Unknown function: get_calendar", r.Error)
}

func TestOrchestrator_ToolResultsKeepRequestOrder(t *testing.T) {
	t.Parallel()

	// The first call finishes last.
	executor := &mock.ToolExecutor{
		ExecuteFn: func(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
			if name == tool.IssueActivity {
				time.Sleep(30 * time.Millisecond)
			}
			return pulse.NewToolResult(map[string]string{"tool": name})
		},
	}
	completer, reqs := scripted(t,
		pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{
			call("a", tool.IssueActivity, "x"),
			call("b", tool.RepoActivity, "x"),
			call("c", tool.RepoActivity, "y"),
		}},
		pulse.AssistantMessage{Text: "done"},
	)
	o := chat.New(completer, executor)

	answer := o.Chat(context.Background(), "status of x and y")

	require.True(t, answer.Success)
	results := toolResults(t, (*reqs)[1])
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ToolCallID)
	assert.Equal(t, "b", results[1].ToolCallID)
	assert.Equal(t, "c", results[2].ToolCallID)
	assert.JSONEq(t, `{"success":true,"data":{"tool":"get_issue_activity"}}`, results[0].Content)
}

func TestOrchestrator_OneFailedToolDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	executor := &mock.ToolExecutor{
		ExecuteFn: func(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
			if name == tool.IssueActivity {
				return pulse.FailedToolResult(pulse.ErrorKindAPI, "jira: rate limited"), nil
			}
			return pulse.NewToolResult(map[string]int{"commits": 4})
		},
	}
	completer, reqs := scripted(t,
		pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{call("1", tool.IssueActivity, "sarah"), call("2", tool.RepoActivity, "sarah")}},
		pulse.AssistantMessage{Text: "JIRA had a technical issue; Sarah made 4 commits."},
	)
	o := chat.New(completer, executor)

	answer := o.Chat(context.Background(), "What is Sarah working on?")

	require.True(t, answer.Success)
	results := toolResults(t, (*reqs)[1])
	require.Len(t, results, 2)
	assert.True(t, results[0].IsError)
	assert.JSONEq(t, `{"success":false,"error":"jira: rate limited","error_kind":"api_error"}`, results[0].Content)
	assert.False(t, results[1].IsError)
}

func TestOrchestrator_Failures(t *testing.T) {
	t.Parallel()

	t.Run("missing completer is a configuration error", func(t *testing.T) {
		t.Parallel()
		o := chat.New(nil, team())
		answer := o.Chat(context.Background(), "What is Sarah working on?")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindConfiguration, answer.ErrorKind)
		assert.Equal(t, []string{}, answer.ToolsUsed)
	})

	t.Run("empty query is rejected before calling the model", func(t *testing.T) {
		t.Parallel()
		o := chat.New(&mock.Completer{}, team())
		answer := o.Chat(context.Background(), "   ")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindConfiguration, answer.ErrorKind)
	})

	t.Run("first round-trip timeout", func(t *testing.T) {
		t.Parallel()
		var calls int
		completer := &mock.Completer{
			CompleteFn: func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
				calls++
				if calls == 1 {
					<-ctx.Done()
					return pulse.AssistantMessage{}, fmt.Errorf("openai: %w", ctx.Err())
				}
				return pulse.AssistantMessage{Text: "fresh answer"}, nil
			},
		}
		o := chat.New(completer, team(), chat.WithTimeout(10*time.Millisecond))

		answer := o.Chat(context.Background(), "What is Sarah working on?")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindAPI, answer.ErrorKind)
		assert.Equal(t, "The language model did not respond in time. Please try again.", answer.Error)
		assert.Empty(t, answer.Response)

		next := o.Chat(context.Background(), "hello")
		assert.True(t, next.Success)
		assert.Equal(t, "fresh answer", next.Response)
		assert.Equal(t, []string{}, next.ToolsUsed)
	})

	t.Run("second round-trip failure", func(t *testing.T) {
		t.Parallel()
		var calls int
		completer := &mock.Completer{
			CompleteFn: func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
				calls++
				if calls == 1 {
					return pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{call("1", tool.IssueActivity, "mike")}}, nil
				}
				return pulse.AssistantMessage{}, errors.New("openai: 502 bad gateway")
			},
		}
		o := chat.New(completer, team())
		answer := o.Chat(context.Background(), "What JIRA tickets does Mike have?")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindAPI, answer.ErrorKind)
		assert.Equal(t, "A technical issue occurred while contacting the language model. Please try again.", answer.Error)
	})

	t.Run("completer reporting missing key", func(t *testing.T) {
		t.Parallel()
		completer := &mock.Completer{
			CompleteFn: func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
				return pulse.AssistantMessage{}, fmt.Errorf("anthropic: api key: %w", pulse.ErrNotConfigured)
			},
		}
		answer := chat.New(completer, team()).Chat(context.Background(), "hi")
		assert.Equal(t, pulse.ErrorKindConfiguration, answer.ErrorKind)
	})

	t.Run("unparseable tool arguments", func(t *testing.T) {
		t.Parallel()
		completer, reqs := scripted(t,
			pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{{ID: "1", Name: tool.IssueActivity, Arguments: json.RawMessage(`{"identifier":`)}}},
		)
		answer := chat.New(completer, team()).Chat(context.Background(), "What is Sarah working on?")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindInternal, answer.ErrorKind)
		assert.Len(t, *reqs, 1)
	})

	t.Run("executor panic", func(t *testing.T) {
		t.Parallel()
		executor := &mock.ToolExecutor{
			ExecuteFn: func(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
				panic("boom")
			},
		}
		completer, _ := scripted(t, pulse.AssistantMessage{ToolCalls: []pulse.ToolCall{call("1", tool.RepoActivity, "x")}})
		answer := chat.New(completer, executor).Chat(context.Background(), "repos of x?")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindInternal, answer.ErrorKind)
		assert.NotContains(t, answer.Error, "boom")
	})

	t.Run("completer panic", func(t *testing.T) {
		t.Parallel()
		completer := &mock.Completer{
			CompleteFn: func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
				panic("nil map")
			},
		}
		answer := chat.New(completer, team()).Chat(context.Background(), "hi")
		assert.False(t, answer.Success)
		assert.Equal(t, pulse.ErrorKindInternal, answer.ErrorKind)
		assert.Equal(t, []string{}, answer.ToolsUsed)
	})
}

func TestOrchestrator_UpstreamBodyNotExposed(t *testing.T) {
	t.Parallel()

	const page = `<html><body>nginx upstream secret-host-10.0.0.7 stack: at foo.go:12</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	o := chat.New(openai.New("sk-test", openai.WithBaseURL(srv.URL)), team(),
		chat.WithLogger(zerolog.New(&logs)))
	answer := o.Chat(context.Background(), "What is Sarah working on?")

	assert.False(t, answer.Success)
	assert.Equal(t, pulse.ErrorKindAPI, answer.ErrorKind)
	for _, leak := range []string{"secret-host", "10.0.0.7", "foo.go", "<html>", "nginx"} {
		assert.NotContains(t, answer.Error, leak)
	}
	assert.Contains(t, logs.String(), "HTTP 502")
}

func TestOrchestrator_UsageAndStopReason(t *testing.T) {
	t.Parallel()

	completer, _ := scripted(t,
		pulse.AssistantMessage{
			ToolCalls:  []pulse.ToolCall{call("1", tool.IssueActivity, "sarah")},
			StopReason: pulse.StopToolUse,
			Usage:      pulse.Usage{InputTokens: 100, OutputTokens: 10, CacheReadTokens: 50},
		},
		pulse.AssistantMessage{
			Text:          "Sarah is on PROJ-1 and",
			StopReason:    pulse.StopLength,
			RawStopReason: "length",
			Usage:         pulse.Usage{InputTokens: 200, OutputTokens: 1000},
		},
	)
	var logs bytes.Buffer
	o := chat.New(completer, team(), chat.WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))

	answer := o.Chat(context.Background(), "What is Sarah working on?")
	require.True(t, answer.Success, answer.Error)
	assert.True(t, answer.Truncated)

	out := logs.String()
	assert.Contains(t, out, `"stop_reason":"length"`)
	assert.Contains(t, out, `"input_tokens":300`)
	assert.Contains(t, out, `"output_tokens":1010`)
	assert.Contains(t, out, `"cache_read_tokens":50`)
}

func TestOrchestrator_Options(t *testing.T) {
	t.Parallel()

	completer, reqs := scripted(t, pulse.AssistantMessage{Text: "ok"})
	o := chat.New(completer, team(),
		chat.WithModel("gpt-4o-mini"),
		chat.WithMaxTokens(256),
		chat.WithTemperature(0),
		chat.WithSystemPrompt("Be brief."),
		chat.WithTools(tool.Specs()[:1]),
	)

	o.Chat(context.Background(), "hi")

	req := (*reqs)[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.0, *req.Temperature, 1e-9)
	assert.Equal(t, "Be brief.", req.SystemPrompt)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, tool.IssueActivity, req.Tools[0].Name)
}
