// Package chat answers natural-language questions by letting a language
// model call the activity tools.
//
// A turn makes at most two model round-trips. The first offers the tools with
// automatic tool choice. If the model requests tools they are executed and a
// second round-trip, with tool calls disabled, produces the final answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/tool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Generation defaults.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// Messages shown to the user when a turn fails. Provider details are logged,
// never returned.
const (
	msgNotConfigured = "The language model is not configured."
	msgUpstream      = "A technical issue occurred while contacting the language model. Please try again."
	msgTimeout       = "The language model did not respond in time. Please try again."
	msgInternal      = "An internal error occurred while processing your message."
)

// Compile-time interface check.
var _ pulse.ChatService = (*Orchestrator)(nil)

// Orchestrator runs chat turns. It keeps no state between turns and is safe
// for concurrent use.
type Orchestrator struct {
	completer    pulse.Completer
	executor     pulse.ToolExecutor
	tools        []pulse.ToolSpec
	systemPrompt string
	model        string
	maxTokens    int
	temperature  float64
	timeout      time.Duration
	logger       zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel sets the model ID sent with every completion request.
// Empty means the provider default.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		o.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) {
		o.temperature = t
	}
}

// WithTimeout bounds each completion round-trip. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithTools replaces the tool set offered to the model.
func WithTools(tools []pulse.ToolSpec) Option {
	return func(o *Orchestrator) {
		o.tools = tools
	}
}

// WithSystemPrompt replaces the system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an Orchestrator. A nil completer is allowed: every turn then
// fails with a configuration error, so a server can start without an LLM key.
func New(completer pulse.Completer, executor pulse.ToolExecutor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer:    completer,
		executor:     executor,
		tools:        tool.Specs(),
		systemPrompt: SystemPrompt,
		maxTokens:    DefaultMaxTokens,
		temperature:  DefaultTemperature,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chat runs one turn for query. It always returns an answer; failures are
// reported through ChatAnswer.Error and ChatAnswer.ErrorKind.
func (o *Orchestrator) Chat(ctx context.Context, query string) (answer pulse.ChatAnswer) {
	id, ok := pulse.RequestIDFrom(ctx)
	if !ok {
		id = uuid.NewString()
	}
	conv := &pulse.Conversation{
		ID:           id,
		SystemPrompt: o.systemPrompt,
		CreatedAt:    time.Now(),
	}
	log := o.logger.With().Str("request_id", conv.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("chat turn panicked")
			answer = pulse.FailedAnswer(pulse.ErrorKindInternal, msgInternal)
		}
	}()

	if o.completer == nil || o.executor == nil {
		return pulse.FailedAnswer(pulse.ErrorKindConfiguration, msgNotConfigured)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return pulse.FailedAnswer(pulse.ErrorKindConfiguration, "query must not be empty")
	}

	log.Info().Int("query_len", len(query)).Msg("chat turn started")
	conv.Append(pulse.UserMessage{Text: query, Timestamp: time.Now()})

	decision, err := o.complete(ctx, conv, pulse.ToolChoiceAuto)
	if err != nil {
		log.Error().Err(err).Msg("completion failed")
		return failed(err)
	}
	logCompletion(log, "decision", decision)
	usage := decision.Usage
	if len(decision.ToolCalls) == 0 {
		logTurn(log, usage, nil)
		return pulse.ChatAnswer{
			Success:   true,
			Response:  decision.Text,
			ToolsUsed: []string{},
			Truncated: decision.StopReason == pulse.StopLength,
		}
	}

	conv.Append(decision)
	results, err := o.runTools(ctx, log, decision.ToolCalls)
	if err != nil {
		log.Error().Err(err).Msg("tool execution failed")
		return pulse.FailedAnswer(pulse.ErrorKindInternal, msgInternal)
	}
	for _, r := range results {
		conv.Append(r)
	}

	final, err := o.complete(ctx, conv, pulse.ToolChoiceNone)
	if err != nil {
		log.Error().Err(err).Msg("final completion failed")
		return failed(err)
	}
	logCompletion(log, "final", final)
	usage = usage.Add(final.Usage)

	used := make([]string, len(decision.ToolCalls))
	for i, tc := range decision.ToolCalls {
		used[i] = tc.Name
	}
	logTurn(log, usage, used)
	return pulse.ChatAnswer{
		Success:   true,
		Response:  final.Text,
		ToolsUsed: used,
		Truncated: final.StopReason == pulse.StopLength,
	}
}

func logCompletion(log zerolog.Logger, round string, msg pulse.AssistantMessage) {
	level := zerolog.DebugLevel
	if msg.StopReason == pulse.StopLength {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Str("round", round).
		Str("stop_reason", string(msg.StopReason)).
		Str("raw_stop_reason", msg.RawStopReason).
		Int("output_tokens", msg.Usage.OutputTokens).
		Msg("completion finished")
}

func logTurn(log zerolog.Logger, usage pulse.Usage, used []string) {
	log.Info().
		Strs("tools_used", used).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Int("cache_read_tokens", usage.CacheReadTokens).
		Msg("chat turn completed")
}

func (o *Orchestrator) complete(ctx context.Context, conv *pulse.Conversation, choice pulse.ToolChoice) (pulse.AssistantMessage, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	temp := o.temperature
	return o.completer.Complete(ctx, pulse.Request{
		Model:        o.model,
		SystemPrompt: conv.SystemPrompt,
		Messages:     conv.Messages,
		Tools:        o.tools,
		ToolChoice:   choice,
		MaxTokens:    o.maxTokens,
		Temperature:  &temp,
	})
}

// runTools executes calls concurrently and returns their results in request
// order. Only executor errors abort the batch; failed tool results do not.
func (o *Orchestrator) runTools(ctx context.Context, log zerolog.Logger, calls []pulse.ToolCall) ([]pulse.ToolResultMessage, error) {
	results := make([]pulse.ToolResultMessage, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, tc := range calls {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("tool %s panicked: %v", tc.Name, r)
				}
			}()
			start := time.Now()
			result, err := o.executor.Execute(gctx, tc.Name, tc.Arguments)
			if err != nil {
				return fmt.Errorf("tool %s: %w", tc.Name, err)
			}
			content, err := result.Content()
			if err != nil {
				return fmt.Errorf("tool %s: %w", tc.Name, err)
			}
			log.Debug().
				Str("tool", tc.Name).
				Str("call_id", tc.ID).
				Bool("success", result.Success).
				Str("error_kind", string(result.ErrorKind)).
				Dur("duration", time.Since(start)).
				Msg("tool call finished")
			results[i] = pulse.ToolResultMessage{
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				Content:    content,
				IsError:    !result.Success,
				Timestamp:  time.Now(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// failed classifies a completion error and picks the message shown to the
// user. Configuration problems keep their kind; everything else is an
// upstream failure.
func failed(err error) pulse.ChatAnswer {
	switch kind := pulse.KindOf(err); {
	case kind == pulse.ErrorKindConfiguration:
		return pulse.FailedAnswer(kind, msgNotConfigured)
	case kind == pulse.ErrorKindInternal:
		return pulse.FailedAnswer(kind, msgInternal)
	case errors.Is(err, context.DeadlineExceeded):
		return pulse.FailedAnswer(pulse.ErrorKindAPI, msgTimeout)
	default:
		return pulse.FailedAnswer(pulse.ErrorKindAPI, msgUpstream)
	}
}
