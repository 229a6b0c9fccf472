package fotasync

import (
	"sync"

	"github.com/pkg/errors"
)

// Entry bundles the client, coordinator and commands for one account.
type Entry struct {
	ID          string
	Client      RemoteClient
	Coordinator *Coordinator
	Commands    *TaskCommands
}

// Registry is the explicit owner of every running account entry. Anything
// that needs "the client managing device X" looks it up here instead of
// reaching into process-global state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers an account entry under the given id. Re-adding an existing id
// replaces the previous entry.
func (r *Registry) Add(id string, client RemoteClient, coordinator *Coordinator) (*Entry, error) {
	if id == "" {
		return nil, errors.New("registry entry id cannot be empty")
	}
	commands, err := NewTaskCommands(client, coordinator)
	if err != nil {
		return nil, err
	}
	entry := &Entry{ID: id, Client: client, Coordinator: coordinator, Commands: commands}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		r.order = append(r.order, id)
	}
	r.entries[id] = entry
	return entry, nil
}

// Remove drops an entry. It is the caller's job to stop the coordinator.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		return
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the entry registered under id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// First returns the earliest-registered entry, if any.
func (r *Registry) First() (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil, false
	}
	return r.entries[r.order[0]], true
}

// ForDevice returns the entry whose latest snapshot contains the given
// device, falling back to the first entry so account-level commands still
// have somewhere to go.
func (r *Registry) ForDevice(imei string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		entry := r.entries[id]
		if _, ok := entry.Coordinator.Latest().Device(imei); ok {
			return entry, true
		}
	}
	if len(r.order) == 0 {
		return nil, false
	}
	return r.entries[r.order[0]], true
}

// RefreshAll requests a refresh on every registered coordinator.
func (r *Registry) RefreshAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		entry.Coordinator.RequestRefresh()
	}
}
