// Package addon provides the saved-addon registry: the records the health
// subsystem checks and the dashboard manages.
package addon

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrAddonNotFound = errors.New("addon not found")
	ErrProtected     = errors.New("addon is protected")
)

// Addon is a saved addon configuration on the managed account.
type Addon struct {
	ID         string
	Name       string
	InstallURL string
	Position   int
	Protected  bool
	Health     *Health
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Health is an addon's last reachability record. It is owned by the health
// subsystem and overwritten wholesale on every check; there are no merge
// semantics. It disappears only when the owning addon is deleted.
type Health struct {
	Online      bool
	Error       string
	LastChecked time.Time
}
