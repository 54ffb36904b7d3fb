package pulse

import (
	"context"
	"fmt"
)

// Completer is a strategy pattern interface for language-model providers.
// Complete performs one blocking round-trip and returns the assembled
// assistant message. Cancellation and deadlines flow through ctx.
type Completer interface {
	Complete(ctx context.Context, req Request) (AssistantMessage, error)
}

// Request carries the conversation, the callable tools and generation
// parameters. The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSpec
	ToolChoice   ToolChoice // empty = provider default (auto when tools are present)
	MaxTokens    int        // 0 = provider default
	Temperature  *float64   // nil = provider default
}

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	switch r.ToolChoice {
	case "", ToolChoiceAuto, ToolChoiceNone:
	default:
		return fmt.Errorf("unknown tool choice %q: %w", r.ToolChoice, ErrValidation)
	}
	for i, msg := range r.Messages {
		if err := ValidateMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks the fields a provider needs to encode msg.
func ValidateMessage(msg Message) error {
	switch m := msg.(type) {
	case UserMessage:
		if m.Text == "" {
			return fmt.Errorf("empty user message: %w", ErrValidation)
		}
	case AssistantMessage:
		for _, tc := range m.ToolCalls {
			if tc.ID == "" || tc.Name == "" {
				return fmt.Errorf("tool call missing id or name: %w", ErrValidation)
			}
		}
	case ToolResultMessage:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool result missing tool call id: %w", ErrValidation)
		}
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
	return nil
}
