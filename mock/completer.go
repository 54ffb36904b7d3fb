package mock

import (
	"context"

	"github.com/fwojciec/pulse"
)

// Interface compliance check.
var _ pulse.Completer = (*Completer)(nil)

// Completer is a test double for pulse.Completer.
// Set CompleteFn before calling Complete.
type Completer struct {
	CompleteFn func(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error)
}

// Complete delegates to CompleteFn.
func (c *Completer) Complete(ctx context.Context, req pulse.Request) (pulse.AssistantMessage, error) {
	return c.CompleteFn(ctx, req)
}
