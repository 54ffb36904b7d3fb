package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/pulse"
)

// Interface compliance check.
var _ pulse.Completer = (*Client)(nil)

// Client implements [pulse.Completer] for the OpenAI Chat Completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for compatible gateways and
// for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a new OpenAI [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends one non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
	if c.apiKey == "" {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: api key: %w", pulse.ErrNotConfigured)
	}
	if err := req.Validate(); err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: %w", err)
	}
	body, err := c.buildRequestBody(req)
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pulse.AssistantMessage{}, parseHTTPError(resp)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: decode response: %w", err)
	}
	return convertResponse(out)
}

func (c *Client) buildRequestBody(req pulse.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	apiReq := apiRequest{
		Model:       model,
		Messages:    convertMessages(req.SystemPrompt, req.Messages),
		Tools:       convertTools(req.Tools),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if len(apiReq.Tools) > 0 {
		apiReq.ToolChoice = string(pulse.ToolChoiceAuto)
		if req.ToolChoice == pulse.ToolChoiceNone {
			apiReq.ToolChoice = string(pulse.ToolChoiceNone)
		}
	}
	return json.Marshal(apiReq)
}

func convertMessages(system string, msgs []pulse.Message) []apiMessage {
	result := make([]apiMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, apiMessage{Role: "system", Content: &system})
	}
	// Chat Completions role names match pulse.Role values.
	for _, msg := range msgs {
		role := string(msg.Role())
		switch m := msg.(type) {
		case pulse.UserMessage:
			text := m.Text
			result = append(result, apiMessage{Role: role, Content: &text})
		case pulse.AssistantMessage:
			am := apiMessage{Role: role}
			if m.Text != "" || len(m.ToolCalls) == 0 {
				text := m.Text
				am.Content = &text
			}
			for _, tc := range m.ToolCalls {
				args := string(tc.Arguments)
				if args == "" {
					args = "{}"
				}
				am.ToolCalls = append(am.ToolCalls, apiToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: apiFunctionCall{Name: tc.Name, Arguments: args},
				})
			}
			result = append(result, am)
		case pulse.ToolResultMessage:
			content := m.Content
			result = append(result, apiMessage{Role: role, Content: &content, ToolCallID: m.ToolCallID})
		}
	}
	return result
}

func convertTools(tools []pulse.ToolSpec) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		result[i] = apiTool{
			Type: "function",
			Function: apiFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func convertResponse(out apiResponse) (pulse.AssistantMessage, error) {
	if len(out.Choices) == 0 {
		return pulse.AssistantMessage{}, fmt.Errorf("openai: no choices in response")
	}
	choice := out.Choices[0]

	msg := pulse.AssistantMessage{
		Text:          parseContent(choice.Message.Content),
		RawStopReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(bytes.TrimSpace(args)) == 0 {
			args = json.RawMessage("{}")
		}
		msg.ToolCalls = append(msg.ToolCalls, pulse.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	switch choice.FinishReason {
	case "stop":
		msg.StopReason = pulse.StopEndTurn
	case "length":
		msg.StopReason = pulse.StopLength
	case "tool_calls", "function_call":
		msg.StopReason = pulse.StopToolUse
	default:
		msg.StopReason = pulse.StopUnknown
	}
	if len(msg.ToolCalls) > 0 {
		msg.StopReason = pulse.StopToolUse
	}

	if u := out.Usage; u != nil {
		msg.Usage = pulse.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
		if u.PromptTokensDetails != nil {
			msg.Usage.CacheReadTokens = u.PromptTokensDetails.CachedTokens
		}
	}
	return msg, nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		// Non-JSON bodies are proxy pages; only the status is kept.
		return fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if apiErr.Error.Type != "" {
		return fmt.Errorf("openai: %s: %s", apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
}
