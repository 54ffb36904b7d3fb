package anthropic

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

// Client implements [pulse.Completer] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
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

// New creates a new Anthropic [Client] with the given API key and options.
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

// Complete sends a request to the Anthropic Messages API and returns the
// assembled reply.
func (c *Client) Complete(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
	if c.apiKey == "" {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: api key: %w", pulse.ErrNotConfigured)
	}
	if err := req.Validate(); err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: %w", err)
	}
	body, err := c.buildRequestBody(req)
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pulse.AssistantMessage{}, parseHTTPError(resp)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pulse.AssistantMessage{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return convertResponse(out), nil
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
		MaxTokens:   maxTokens,
		System:      convertSystem(req.SystemPrompt),
		Messages:    convertMessages(req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: clampTemperature(req.Temperature),
	}
	if len(apiReq.Tools) > 0 {
		choice := string(pulse.ToolChoiceAuto)
		if req.ToolChoice == pulse.ToolChoiceNone {
			choice = string(pulse.ToolChoiceNone)
		}
		apiReq.ToolChoice = &apiToolChoice{Type: choice}
	}
	injectCacheMarkers(&apiReq)

	return json.Marshal(apiReq)
}

// clampTemperature maps the shared [0, 2] range onto Anthropic's [0, 1].
func clampTemperature(t *float64) *float64 {
	if t == nil || *t <= 1 {
		return t
	}
	one := 1.0
	return &one
}

// convertSystem converts a system prompt string to an array of content blocks
// suitable for the Anthropic API. Returns nil when the prompt is empty.
func convertSystem(prompt string) []apiContentBlock {
	if prompt == "" {
		return nil
	}
	return []apiContentBlock{{Type: "text", Text: prompt}}
}

// injectCacheMarkers sets cache_control breakpoints on the last system block
// and the last tool. Both are identical across the two round-trips of a turn.
func injectCacheMarkers(req *apiRequest) {
	cc := &apiCacheControl{Type: "ephemeral"}
	if len(req.System) > 0 {
		req.System[len(req.System)-1].CacheControl = cc
	}
	if len(req.Tools) > 0 {
		req.Tools[len(req.Tools)-1].CacheControl = cc
	}
}

func convertMessages(msgs []pulse.Message) []apiMessage {
	var result []apiMessage
	for _, msg := range msgs {
		switch m := msg.(type) {
		case pulse.UserMessage:
			result = append(result, apiMessage{
				Role:    string(m.Role()),
				Content: []apiContentBlock{{Type: "text", Text: m.Text}},
			})
		case pulse.AssistantMessage:
			var blocks []apiContentBlock
			if m.Text != "" {
				blocks = append(blocks, apiContentBlock{Type: "text", Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, apiContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			result = append(result, apiMessage{Role: string(m.Role()), Content: blocks})
		case pulse.ToolResultMessage:
			block := apiContentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
				IsError:   m.IsError,
			}
			// Merge consecutive tool results into the same user message.
			if n := len(result); n > 0 && result[n-1].Role == string(pulse.RoleUser) && isToolResultMessage(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, block)
			} else {
				result = append(result, apiMessage{
					Role:    string(pulse.RoleUser),
					Content: []apiContentBlock{block},
				})
			}
		}
	}
	return result
}

func isToolResultMessage(msg apiMessage) bool {
	return len(msg.Content) > 0 && msg.Content[0].Type == "tool_result"
}

func convertTools(tools []pulse.ToolSpec) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		result[i] = apiTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		}
	}
	return result
}

func convertResponse(out apiResponse) pulse.AssistantMessage {
	msg := pulse.AssistantMessage{RawStopReason: out.StopReason}
	var text strings.Builder
	for _, b := range out.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_use":
			input := b.Input
			if len(input) == 0 || string(input) == "null" {
				input = json.RawMessage("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, pulse.ToolCall{ID: b.ID, Name: b.Name, Arguments: input})
		}
	}
	msg.Text = text.String()

	switch out.StopReason {
	case "end_turn", "stop_sequence":
		msg.StopReason = pulse.StopEndTurn
	case "max_tokens":
		msg.StopReason = pulse.StopLength
	case "tool_use":
		msg.StopReason = pulse.StopToolUse
	default:
		msg.StopReason = pulse.StopUnknown
	}

	msg.Usage = pulse.Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens}
	if out.Usage.CacheReadInputTokens != nil {
		msg.Usage.CacheReadTokens = *out.Usage.CacheReadInputTokens
	}
	return msg
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		// Non-JSON bodies are proxy pages; only the status is kept.
		return fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return fmt.Errorf("anthropic: %s: %s", apiErr.Error.Type, apiErr.Error.Message)
}
