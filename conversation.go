package pulse

import "time"

// Conversation is the request-scoped message history of one chat turn.
// It is append-only while the turn runs and discarded afterwards.
type Conversation struct {
	ID           string
	SystemPrompt string
	Messages     []Message
	CreatedAt    time.Time
}

// Append adds messages to the end of the conversation.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}
