// Package prometheus instruments pulse services with Prometheus metrics.
//
// Each decorator wraps one root interface and records outcomes without
// changing behavior.
package prometheus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/tool"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pulse"

// Round labels for completions.
const (
	RoundDecision = "decision"
	RoundFinal    = "final"
)

// UnknownTool labels executions of names outside the tool registry, so
// names invented by the model do not create new series.
const UnknownTool = "unknown"

// Token type labels for completion_tokens_total.
const (
	TokensInput     = "input"
	TokensOutput    = "output"
	TokensCacheRead = "cache_read"
)

// Metrics holds the collectors shared by the decorators.
type Metrics struct {
	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	completionTokens   *prometheus.CounterVec
	toolExecutions     *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
	chatTurns          *prometheus.CounterVec
	toolsUsed          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if registration fails, as [prometheus.MustRegister] does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Language-model round-trips by round and outcome.",
		}, []string{"round", "status"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of language-model round-trips.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"round"}),
		completionTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Tokens reported by the language model by round and type.",
		}, []string{"round", "type"}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool, outcome and error kind.",
		}, []string{"tool", "status", "error_kind"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Latency of tool executions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"tool"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome and error kind.",
		}, []string{"status", "error_kind"}),
		toolsUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_tools_used_total",
			Help:      "Tools reported as used by successful chat turns.",
		}, []string{"tool"}),
	}
	reg.MustRegister(
		m.completions,
		m.completionDuration,
		m.completionTokens,
		m.toolExecutions,
		m.toolDuration,
		m.chatTurns,
		m.toolsUsed,
	)
	return m
}

var knownTools = func() map[string]bool {
	known := make(map[string]bool)
	for _, spec := range tool.Specs() {
		known[spec.Name] = true
	}
	return known
}()

func toolLabel(name string) string {
	if knownTools[name] {
		return name
	}
	return UnknownTool
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Completer wraps next so each round-trip is counted and timed.
func (m *Metrics) Completer(next pulse.Completer) pulse.Completer {
	return &completer{next: next, m: m}
}

type completer struct {
	next pulse.Completer
	m    *Metrics
}

func (c *completer) Complete(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
	round := RoundDecision
	if req.ToolChoice == pulse.ToolChoiceNone {
		round = RoundFinal
	}
	start := time.Now()
	msg, err := c.next.Complete(ctx, req)
	c.m.completionDuration.WithLabelValues(round).Observe(time.Since(start).Seconds())
	c.m.completions.WithLabelValues(round, status(err == nil)).Inc()
	if err == nil {
		c.m.completionTokens.WithLabelValues(round, TokensInput).Add(float64(msg.Usage.InputTokens))
		c.m.completionTokens.WithLabelValues(round, TokensOutput).Add(float64(msg.Usage.OutputTokens))
		c.m.completionTokens.WithLabelValues(round, TokensCacheRead).Add(float64(msg.Usage.CacheReadTokens))
	}
	return msg, err
}

// ToolExecutor wraps next so each execution is counted and timed.
func (m *Metrics) ToolExecutor(next pulse.ToolExecutor) pulse.ToolExecutor {
	return &toolExecutor{next: next, m: m}
}

type toolExecutor struct {
	next pulse.ToolExecutor
	m    *Metrics
}

func (e *toolExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
	start := time.Now()
	res, err := e.next.Execute(ctx, name, args)
	label := toolLabel(name)
	e.m.toolDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	switch {
	case err != nil, res == nil:
		e.m.toolExecutions.WithLabelValues(label, "error", string(pulse.ErrorKindInternal)).Inc()
	default:
		e.m.toolExecutions.WithLabelValues(label, status(res.Success), string(res.ErrorKind)).Inc()
	}
	return res, err
}

// ChatService wraps next so each turn and the tools it used are counted.
func (m *Metrics) ChatService(next pulse.ChatService) pulse.ChatService {
	return &chatService{next: next, m: m}
}

type chatService struct {
	next pulse.ChatService
	m    *Metrics
}

func (s *chatService) Chat(ctx context.Context, query string) pulse.ChatAnswer {
	ans := s.next.Chat(ctx, query)
	s.m.chatTurns.WithLabelValues(status(ans.Success), string(ans.ErrorKind)).Inc()
	for _, name := range ans.ToolsUsed {
		s.m.toolsUsed.WithLabelValues(toolLabel(name)).Inc()
	}
	return ans
}
