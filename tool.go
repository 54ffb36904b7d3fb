package pulse

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolSpec is the schema sent to the model describing a callable tool.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  ParameterSchema
}

// ParameterSchema describes the JSON object a tool accepts.
type ParameterSchema struct {
	Properties map[string]Property
	Required   []string
}

// Property describes a single tool parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON renders the schema as a JSON Schema object.
func (s ParameterSchema) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]Property{}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return json.Marshal(struct {
		Type       string              `json:"type"`
		Properties map[string]Property `json:"properties"`
		Required   []string            `json:"required"`
	}{"object", props, required})
}

// ToolChoice controls whether the model may request tool calls.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether and which tools to call.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone forbids tool calls; the model must answer in text.
	ToolChoiceNone ToolChoice = "none"
)

// ToolCall is a model-issued request to invoke a tool. ID must be echoed back
// verbatim on the matching ToolResultMessage.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolExecutor runs tools. Execute returns an error only when the arguments
// cannot be decoded at all. Every other failure, including an unknown tool
// name, is reported through the ToolResult envelope so the model can react.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error)
}

// ToolResult is the uniform envelope returned by every tool execution.
// Exactly one of Data and Error is populated depending on Success.
type ToolResult struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty"`
}

// NewToolResult returns a successful envelope carrying data encoded as JSON.
func NewToolResult(data any) (*ToolResult, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode tool data: %w", err)
	}
	return &ToolResult{Success: true, Data: raw}, nil
}

// FailedToolResult returns a failed envelope of the given kind.
func FailedToolResult(kind ErrorKind, msg string) *ToolResult {
	return &ToolResult{Success: false, Error: msg, ErrorKind: kind}
}

// Content returns the JSON encoding of the envelope as sent to the model.
func (r *ToolResult) Content() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}
