package core

import (
	"sync"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// HandlerFunc processes a decoded Variant arriving on link, originating
// from origin. It returns consume=true to stop further *local* dispatch for
// this packet (§4.C); whether the packet still propagates is a Router
// decision, not the handler's.
type HandlerFunc func(v types.Variant, link types.ConnectionId, origin types.NodeId) bool

// PackageTable maps a package type to its handler and records which types
// never propagate as BROADCAST regardless of what their handler returns
// (§4.D's resolution of the open question: TIME_SYNC is unicast-only,
// NODE_SYNC_REPLY is neighbour-only).
type PackageTable struct {
	mutex          sync.RWMutex
	handlers       map[uint16]HandlerFunc
	nonPropagating map[uint16]bool
	catchAll       HandlerFunc
}

// NewPackageTable returns an empty table.
func NewPackageTable() *PackageTable {
	return &PackageTable{
		handlers:       make(map[uint16]HandlerFunc),
		nonPropagating: make(map[uint16]bool),
	}
}

// Register installs the handler for typ.
func (t *PackageTable) Register(typ uint16, handler HandlerFunc) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers[typ] = handler
}

// SetNonPropagating marks typ as never forwarded when arriving as
// BROADCAST, independent of what its handler returns.
func (t *PackageTable) SetNonPropagating(typ uint16) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.nonPropagating[typ] = true
}

// IsNonPropagating reports whether typ is registered as non-propagating.
func (t *PackageTable) IsNonPropagating(typ uint16) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.nonPropagating[typ]
}

// RegisterCatchAll installs a fallback invoked for any type with no
// specific handler, instead of failing decode with ErrUnknownType.
func (t *PackageTable) RegisterCatchAll(handler HandlerFunc) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.catchAll = handler
}

// Dispatch invokes the handler registered for v.Type, or the catch-all if
// none is registered. Returns types.ErrUnknownType if neither exists.
func (t *PackageTable) Dispatch(v types.Variant, link types.ConnectionId, origin types.NodeId) (consume bool, err error) {
	t.mutex.RLock()
	h, ok := t.handlers[v.Type]
	fallback := t.catchAll
	t.mutex.RUnlock()

	if !ok {
		if fallback == nil {
			return false, types.ErrUnknownType
		}
		return fallback(v, link, origin), nil
	}
	return h(v, link, origin), nil
}
