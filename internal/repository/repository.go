package repository

import (
	"context"

	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
)

// CartRepository is the persistence boundary for carts. Implementations
// store the whole cart as one value per session: no partial writes, no
// versioning. Concurrent saves for the same session are last-write-wins;
// the service makes no attempt to detect or reconcile such races.
type CartRepository interface {
	// Load reads the cart for a session. A missing or undecodable stored
	// value yields an empty cart, never an error; only transport failures
	// propagate.
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save writes the full cart for a session, replacing any prior value.
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
}
