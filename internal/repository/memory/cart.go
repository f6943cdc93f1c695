// Package memory provides a map-backed cart repository. It serves as the
// store for local development without Redis and as a test double; the
// serialization and recovery behavior intentionally mirrors the Redis
// implementation.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
)

// CartRepository implements repository.CartRepository in process memory.
// Carts are stored serialized so loads never alias a saved cart.
type CartRepository struct {
	mu     sync.RWMutex
	data   map[string][]byte
	logger *slog.Logger
}

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository(logger *slog.Logger) *CartRepository {
	return &CartRepository{
		data:   make(map[string][]byte),
		logger: logger,
	}
}

// Load reads the cart for a session, recovering to an empty cart on a
// missing or undecodable value.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.RLock()
	raw, ok := r.data[sessionID]
	r.mu.RUnlock()

	if !ok {
		return domain.NewCart(), nil
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		r.logger.WarnContext(ctx, "discarding malformed stored cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return domain.NewCart(), nil
	}

	cart.Normalize()
	return &cart, nil
}

// Save writes the full cart for a session, replacing any prior value.
func (r *CartRepository) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	r.mu.Lock()
	r.data[sessionID] = data
	r.mu.Unlock()
	return nil
}

// SeedRaw stores a raw payload for a session, bypassing serialization.
// Intended for tests exercising the malformed-state recovery path.
func (r *CartRepository) SeedRaw(sessionID string, raw []byte) {
	r.mu.Lock()
	r.data[sessionID] = raw
	r.mu.Unlock()
}
