package addon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL addon repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const addonColumns = `
	id, name, install_url, position, protected,
	health_online, health_error, health_last_checked,
	created_at, updated_at
`

// Get retrieves an addon by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Addon, error) {
	query := `SELECT` + addonColumns + `FROM addons WHERE id = $1`

	a, err := scanAddon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddonNotFound
		}
		return nil, err
	}
	return a, nil
}

// List retrieves all addons ordered by position.
func (r *PostgresRepository) List(ctx context.Context) ([]*Addon, error) {
	query := `SELECT` + addonColumns + `FROM addons ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addons []*Addon
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addons, nil
}

// Create creates a new addon.
func (r *PostgresRepository) Create(ctx context.Context, a *Addon) error {
	query := `
		INSERT INTO addons (id, name, install_url, position, protected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.InstallURL, a.Position, a.Protected, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Update updates an existing addon.
func (r *PostgresRepository) Update(ctx context.Context, a *Addon) error {
	query := `
		UPDATE addons
		SET name = $2, install_url = $3, position = $4, protected = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.InstallURL, a.Position, a.Protected, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAddonNotFound
	}
	return nil
}

// Delete deletes an addon by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM addons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAddonNotFound
	}
	return nil
}

// Reorder assigns positions following the order of ids, atomically.
func (r *PostgresRepository) Reorder(ctx context.Context, ids []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for pos, id := range ids {
		tag, err := tx.Exec(ctx,
			`UPDATE addons SET position = $2, updated_at = now() WHERE id = $1`,
			id, pos,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("reorder %s: %w", id, ErrAddonNotFound)
		}
	}

	return tx.Commit(ctx)
}

// SaveHealth overwrites the health record of an addon.
func (r *PostgresRepository) SaveHealth(ctx context.Context, id string, h Health) error {
	var errText *string
	if h.Error != "" {
		errText = &h.Error
	}

	query := `
		UPDATE addons
		SET health_online = $2, health_error = $3, health_last_checked = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, h.Online, errText, h.LastChecked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAddonNotFound
	}
	return nil
}

// BulkUpsert creates or replaces a set of addons in one transaction.
func (r *PostgresRepository) BulkUpsert(ctx context.Context, addons []*Addon) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO addons (id, name, install_url, position, protected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    install_url = EXCLUDED.install_url,
		    position = EXCLUDED.position,
		    protected = EXCLUDED.protected,
		    updated_at = EXCLUDED.updated_at
	`
	for _, a := range addons {
		if _, err := tx.Exec(ctx, query,
			a.ID, a.Name, a.InstallURL, a.Position, a.Protected, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// scanAddon scans one addon row, folding the nullable health columns into
// a Health record when present.
func scanAddon(row pgx.Row) (*Addon, error) {
	var (
		a           Addon
		online      *bool
		healthErr   *string
		lastChecked *time.Time
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.InstallURL,
		&a.Position,
		&a.Protected,
		&online,
		&healthErr,
		&lastChecked,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if online != nil && lastChecked != nil {
		h := Health{Online: *online, LastChecked: *lastChecked}
		if healthErr != nil {
			h.Error = *healthErr
		}
		a.Health = &h
	}

	return &a, nil
}
