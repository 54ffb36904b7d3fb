package pulse

import "context"

// ChatService answers a natural-language question about team activity.
// Chat never returns an error; failures are reported in the ChatAnswer.
type ChatService interface {
	Chat(ctx context.Context, query string) ChatAnswer
}

// ChatAnswer is the outcome of one chat turn.
type ChatAnswer struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response,omitempty"`
	ToolsUsed []string  `json:"tools_used"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Truncated reports that the model stopped at the token limit.
	Truncated bool      `json:"truncated,omitempty"`
}

// FailedAnswer returns an unsuccessful ChatAnswer of the given kind.
func FailedAnswer(kind ErrorKind, msg string) ChatAnswer {
	return ChatAnswer{Success: false, ToolsUsed: []string{}, Error: msg, ErrorKind: kind}
}
