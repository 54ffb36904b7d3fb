package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/pulse"
)

// Interface compliance check.
var _ pulse.ToolExecutor = (*ToolExecutor)(nil)

// ToolExecutor is a test double for pulse.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (*pulse.ToolResult, error) {
	return e.ExecuteFn(ctx, name, args)
}
