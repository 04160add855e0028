package actions

import (
	"sort"
	"sync"

	"github.com/ukydev/aero-console/internal/models"
)

// Registry holds action metadata keyed by action id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]models.ActionMetadata
}

// NewRegistry creates a registry holding metas.
func NewRegistry(metas ...models.ActionMetadata) *Registry {
	r := &Registry{entries: make(map[string]models.ActionMetadata, len(metas))}
	r.Merge(metas)
	return r
}

// DefaultRegistry returns a registry seeded with the console's built-in
// actions.
func DefaultRegistry() *Registry {
	return NewRegistry(builtins()...)
}

// Get returns the metadata for id.
func (r *Registry) Get(id string) (models.ActionMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.entries[id]
	return m, ok
}

// Lookup returns a pointer to a copy of id's metadata, or nil.
func (r *Registry) Lookup(id string) *models.ActionMetadata {
	m, ok := r.Get(id)
	if !ok {
		return nil
	}
	return &m
}

// Merge overlays metas onto the registry, replacing entries with the same id.
// Entries without an id are ignored.
func (r *Registry) Merge(metas []models.ActionMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range metas {
		if m.ActionID == "" {
			continue
		}
		r.entries[m.ActionID] = m
	}
}

// All returns every entry ordered by id.
func (r *Registry) All() []models.ActionMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ActionMetadata, 0, len(r.entries))
	for _, m := range r.entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionID < out[j].ActionID })
	return out
}

// Visible reports whether an action is exposed to role: it must be registered
// and the role must pass its permission bar.
func (r *Registry) Visible(role models.Role, id string) bool {
	m, ok := r.Get(id)
	if !ok {
		return false
	}
	return IsRoleAllowed(role, m.PermissionsRequired)
}
