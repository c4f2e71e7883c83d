// Package registry holds the controller's view of registered backends.
//
// The Registry maps a backend's network address to the port it was
// registered with and tracks whether the proxy is currently online. It is
// the single source of truth the reconciler decides against. A Registry is
// not safe for concurrent use; it is owned by one reconciler goroutine.
package registry

import (
	"maps"
	"slices"
	"strings"
)

// Entry is a registered backend.
type Entry struct {
	// Address is the backend's network address and its identity.
	Address string
	// Port is the port the backend was registered with.
	Port int32
	// Namespace and PodName identify the pod for logging.
	Namespace string
	PodName   string
}

// Registry maps backend addresses to entries.
type Registry struct {
	entries     map[string]Entry
	proxyOnline bool
}

// New creates an empty registry with the proxy offline.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Get returns the entry registered for address.
func (r *Registry) Get(address string) (Entry, bool) {
	e, ok := r.entries[address]
	return e, ok
}

// Put registers an entry, replacing any entry with the same address.
func (r *Registry) Put(e Entry) {
	r.entries[e.Address] = e
}

// Delete removes the entry for address. It reports whether an entry existed.
func (r *Registry) Delete(address string) bool {
	_, ok := r.entries[address]
	delete(r.entries, address)
	return ok
}

// Len returns the number of registered backends.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns all entries ordered by address.
func (r *Registry) Entries() []Entry {
	return slices.SortedFunc(maps.Values(r.entries), func(a, b Entry) int {
		return strings.Compare(a.Address, b.Address)
	})
}

// ProxyOnline reports whether the proxy was last observed active.
func (r *Registry) ProxyOnline() bool { return r.proxyOnline }

// SetProxyOnline records the proxy state. It reports whether the state changed.
func (r *Registry) SetProxyOnline(online bool) bool {
	changed := r.proxyOnline != online
	r.proxyOnline = online
	return changed
}
