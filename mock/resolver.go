package mock

import "github.com/fwojciec/pulse"

// Interface compliance check.
var _ pulse.Resolver = (*Resolver)(nil)

// Resolver is a test double for pulse.Resolver.
type Resolver struct {
	ResolveFn func(identifier string, system pulse.System) (string, bool)
	KnownFn   func() []string
}

// Resolve delegates to ResolveFn.
func (r *Resolver) Resolve(identifier string, system pulse.System) (string, bool) {
	return r.ResolveFn(identifier, system)
}

// Known delegates to KnownFn.
func (r *Resolver) Known() []string {
	return r.KnownFn()
}
