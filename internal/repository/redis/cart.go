package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository on Redis. Each
// session's cart lives under one key as a single JSON blob with a TTL.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Load reads the cart for a session. A missing key or a payload that fails
// to decode yields an empty cart; the decode failure is logged and never
// propagated. Loaded items are normalized so the quantity invariant holds.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.NewCart(), nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		r.logger.WarnContext(ctx, "discarding malformed stored cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return domain.NewCart(), nil
	}

	cart.Normalize()
	return &cart, nil
}

// Save writes the full cart under the session key with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}
