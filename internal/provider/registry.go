package provider

import (
	"slices"
	"sync"
)

// sourceEntry is one registered source as seen by a snapshot.
type sourceEntry struct {
	key    string
	source Source
}

// registry holds the source and manager tables. Iteration follows
// registration order; re-registering a key keeps its position.
type registry struct {
	mu       sync.RWMutex
	order    []string
	sources  map[string]Source
	managers map[string]Manager
}

func newRegistry() *registry {
	return &registry{
		sources:  make(map[string]Source),
		managers: make(map[string]Manager),
	}
}

func (r *registry) putSource(key string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[key]; !exists {
		r.order = append(r.order, key)
	}

	r.sources[key] = src
}

func (r *registry) putManager(key string, mgr Manager) {
	r.putSource(key, mgr)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.managers[key] = mgr
}

func (r *registry) source(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[key]

	return src, ok
}

func (r *registry) manager(key string) (Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mgr, ok := r.managers[key]

	return mgr, ok
}

// snapshot copies the source table in registration order.
func (r *registry) snapshot() []sourceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]sourceEntry, 0, len(r.order))
	for _, key := range r.order {
		entries = append(entries, sourceEntry{key: key, source: r.sources[key]})
	}

	return entries
}

// table copies the source table keyed by source key.
func (r *registry) table() map[string]Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table := make(map[string]Source, len(r.sources))
	for key, src := range r.sources {
		table[key] = src
	}

	return table
}

// observers keeps the listener set and responder list.
type observers struct {
	mu         sync.Mutex
	listeners  []Listener
	responders []Responder
}

// addListener appends l unless the same listener is already registered.
func (o *observers) addListener(l Listener) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if slices.ContainsFunc(o.listeners, func(existing Listener) bool { return sameListener(existing, l) }) {
		return false
	}

	o.listeners = append(o.listeners, l)

	return true
}

// addResponder appends r; duplicates are kept.
func (o *observers) addResponder(r Responder) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.responders = append(o.responders, r)
}

func (o *observers) snapshotListeners() []Listener {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.listeners)
}

func (o *observers) snapshotResponders() []Responder {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.responders)
}

// sameListener compares listeners by identity. Listeners of non-comparable
// dynamic types (func adapters, for one) never compare equal.
func sameListener(a, b Listener) (same bool) {
	defer func() {
		if r := recover(); r != nil {
			same = false
		}
	}()

	return a == b
}
