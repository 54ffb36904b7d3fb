package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/pulse"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ pulse.Completer = (*Client)(nil)

// Generator is the subset of the genai Models service used by [Client].
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements [pulse.Completer] for the Google Gemini API.
type Client struct {
	models Generator
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key: %w", pulse.ErrNotConfigured)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return NewWithGenerator(gc.Models, opts...), nil
}

// NewWithGenerator creates a [Client] backed by g.
func NewWithGenerator(g Generator, opts ...Option) *Client {
	c := &Client{
		models: g,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends req to the Gemini API and returns the model's reply.
func (c *Client) Complete(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
	if err := req.Validate(); err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	contents, err := ConvertMessages(req.Messages)
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("gemini: %w", err)
	}
	resp, err := c.models.GenerateContent(ctx, model, contents, BuildConfig(req))
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("gemini: %w", err)
	}
	return ConvertResponse(resp)
}

// BuildConfig converts generation parameters, tools and tool choice.
// Exported for testing.
func BuildConfig(req pulse.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Tools:           ConvertTools(req.Tools),
	}
	if len(config.Tools) > 0 {
		mode := genai.FunctionCallingConfigModeAuto
		if req.ToolChoice == pulse.ToolChoiceNone {
			mode = genai.FunctionCallingConfigModeNone
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	return config
}

// ConvertMessages converts pulse Messages to genai Contents. Tool results
// are sent as function responses carrying the decoded result envelope.
// Exported for testing.
func ConvertMessages(msgs []pulse.Message) ([]*genai.Content, error) {
	var result []*genai.Content
	for _, msg := range msgs {
		switch m := msg.(type) {
		case pulse.UserMessage:
			result = append(result, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Text}},
			})
		case pulse.AssistantMessage:
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("tool call %s arguments: %w", tc.ID, err)
					}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
			result = append(result, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case pulse.ToolResultMessage:
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil || response == nil {
				key := "output"
				if m.IsError {
					key = "error"
				}
				response = map[string]any{key: m.Content}
			}
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.ToolName,
					Response: response,
				},
			}
			// Consecutive function responses share one user turn.
			if n := len(result); n > 0 && isFunctionResponse(result[n-1]) {
				result[n-1].Parts = append(result[n-1].Parts, part)
			} else {
				result = append(result, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
			}
		}
	}
	return result, nil
}

func isFunctionResponse(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// ConvertTools converts pulse ToolSpecs to genai Tools.
// Exported for testing.
func ConvertTools(tools []pulse.ToolSpec) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		// ParameterSchema always marshals to a JSON object.
		raw, _ := json.Marshal(t.Parameters)
		var schema map[string]any
		_ = json.Unmarshal(raw, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertResponse assembles an AssistantMessage from the first candidate.
// Exported for testing.
func ConvertResponse(resp *genai.GenerateContentResponse) (pulse.AssistantMessage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return pulse.AssistantMessage{}, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return pulse.AssistantMessage{}, fmt.Errorf("gemini: response has no candidates")
	}
	cand := resp.Candidates[0]

	var msg pulse.AssistantMessage
	var text strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			switch {
			case p == nil || p.Thought:
			case p.FunctionCall != nil:
				args := []byte("{}")
				if p.FunctionCall.Args != nil {
					b, err := json.Marshal(p.FunctionCall.Args)
					if err != nil {
						return pulse.AssistantMessage{}, fmt.Errorf("gemini: encode function call args: %w", err)
					}
					args = b
				}
				id := p.FunctionCall.ID
				if id == "" {
					id = fmt.Sprintf("call_%d", len(msg.ToolCalls))
				}
				msg.ToolCalls = append(msg.ToolCalls, pulse.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: args})
			default:
				text.WriteString(p.Text)
			}
		}
	}
	msg.Text = text.String()

	msg.RawStopReason = string(cand.FinishReason)
	switch {
	case len(msg.ToolCalls) > 0:
		msg.StopReason = pulse.StopToolUse
	case cand.FinishReason == genai.FinishReasonStop || cand.FinishReason == "":
		msg.StopReason = pulse.StopEndTurn
	case cand.FinishReason == genai.FinishReasonMaxTokens:
		msg.StopReason = pulse.StopLength
	default:
		msg.StopReason = pulse.StopUnknown
	}

	if u := resp.UsageMetadata; u != nil {
		msg.Usage = pulse.Usage{
			InputTokens:     max(int(u.PromptTokenCount), 0),
			OutputTokens:    max(int(u.CandidatesTokenCount), 0),
			CacheReadTokens: max(int(u.CachedContentTokenCount), 0),
		}
	}
	return msg, nil
}
