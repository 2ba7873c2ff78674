package chainhandler

import (
	"fmt"

	"github.com/arcsign/walletkit/model"
)

// Registry is the build-time immutable map from chain-family tag to its
// ChainHandler, replacing the original codebase's runtime pthread-once
// registry (spec.md §9). Built once via NewRegistry and never mutated
// afterward; safe for concurrent lookups without locking.
type Registry struct {
	handlers map[model.ChainFamily]ChainHandler
}

// NewRegistry builds an immutable registry from a fixed list of handlers,
// collected by the caller (e.g. cmd/walletdemo's wiring code) rather than
// self-registered through package init().
func NewRegistry(handlers ...ChainHandler) (*Registry, error) {
	m := make(map[model.ChainFamily]ChainHandler, len(handlers))
	for _, h := range handlers {
		family := h.Family()
		if _, exists := m[family]; exists {
			return nil, fmt.Errorf("chainhandler: duplicate handler registered for family %q", family)
		}
		m[family] = h
	}
	return &Registry{handlers: m}, nil
}

// Lookup returns the handler for family, or false if no handler was
// registered for it.
func (r *Registry) Lookup(family model.ChainFamily) (ChainHandler, bool) {
	h, ok := r.handlers[family]
	return h, ok
}

// Families returns every chain family this registry has a handler for.
func (r *Registry) Families() []model.ChainFamily {
	out := make([]model.ChainFamily, 0, len(r.handlers))
	for f := range r.handlers {
		out = append(out, f)
	}
	return out
}
