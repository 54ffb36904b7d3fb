package mock

import (
	"context"

	"github.com/fwojciec/pulse"
)

// Interface compliance check.
var _ pulse.ChatService = (*ChatService)(nil)

// ChatService is a test double for pulse.ChatService.
type ChatService struct {
	ChatFn func(ctx context.Context, query string) pulse.ChatAnswer
}

// Chat delegates to ChatFn.
func (s *ChatService) Chat(ctx context.Context, query string) pulse.ChatAnswer {
	return s.ChatFn(ctx, query)
}
