package tool

import "context"

// SetFetchForTest replaces the provider call behind the named tool.
func (e *Executor) SetFetchForTest(name string, fetch func(ctx context.Context, identifier string) (any, error)) {
	h := e.handlers[name]
	h.fetch = fetch
	e.handlers[name] = h
}
