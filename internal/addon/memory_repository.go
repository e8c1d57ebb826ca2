package addon

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development. Production should use
// PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	addons map[string]*Addon
}

// NewInMemoryRepository creates a new in-memory addon repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		addons: make(map[string]*Addon),
	}
}

// Get retrieves an addon by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Addon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addons[id]
	if !ok {
		return nil, ErrAddonNotFound
	}
	return copyAddon(a), nil
}

// List retrieves all addons ordered by position.
func (r *InMemoryRepository) List(_ context.Context) ([]*Addon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addons := make([]*Addon, 0, len(r.addons))
	for _, a := range r.addons {
		addons = append(addons, copyAddon(a))
	}
	sort.Slice(addons, func(i, j int) bool {
		return addons[i].Position < addons[j].Position
	})
	return addons, nil
}

// Create creates a new addon.
func (r *InMemoryRepository) Create(_ context.Context, a *Addon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addons[a.ID] = copyAddon(a)
	return nil
}

// Update updates an existing addon.
func (r *InMemoryRepository) Update(_ context.Context, a *Addon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.addons[a.ID]; !ok {
		return ErrAddonNotFound
	}
	r.addons[a.ID] = copyAddon(a)
	return nil
}

// Delete deletes an addon by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.addons[id]; !ok {
		return ErrAddonNotFound
	}
	delete(r.addons, id)
	return nil
}

// Reorder assigns positions following the order of ids.
func (r *InMemoryRepository) Reorder(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pos, id := range ids {
		a, ok := r.addons[id]
		if !ok {
			return ErrAddonNotFound
		}
		a.Position = pos
	}
	return nil
}

// SaveHealth overwrites the health record of an addon.
func (r *InMemoryRepository) SaveHealth(_ context.Context, id string, h Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addons[id]
	if !ok {
		return ErrAddonNotFound
	}
	a.Health = &h
	return nil
}

// BulkUpsert creates or replaces a set of addons.
func (r *InMemoryRepository) BulkUpsert(_ context.Context, addons []*Addon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range addons {
		r.addons[a.ID] = copyAddon(a)
	}
	return nil
}

// copyAddon returns a deep copy so callers never share repository state.
func copyAddon(a *Addon) *Addon {
	cpy := *a
	if a.Health != nil {
		h := *a.Health
		cpy.Health = &h
	}
	return &cpy
}
