package addon

import "context"

// Repository defines the interface for addon persistence.
type Repository interface {
	// Get retrieves an addon by ID. Returns ErrAddonNotFound if missing.
	Get(ctx context.Context, id string) (*Addon, error)

	// List retrieves all addons ordered by position.
	List(ctx context.Context) ([]*Addon, error)

	// Create creates a new addon.
	Create(ctx context.Context, a *Addon) error

	// Update updates an existing addon.
	Update(ctx context.Context, a *Addon) error

	// Delete deletes an addon by ID.
	Delete(ctx context.Context, id string) error

	// Reorder assigns positions following the order of ids, which must be
	// a permutation of all stored addon IDs.
	Reorder(ctx context.Context, ids []string) error

	// SaveHealth overwrites the health record of an addon.
	SaveHealth(ctx context.Context, id string, h Health) error

	// BulkUpsert creates or replaces a set of addons in one operation.
	BulkUpsert(ctx context.Context, addons []*Addon) error
}
