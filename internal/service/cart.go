package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
	"github.com/teguh2522009-hub/Benihcandi/internal/event"
	"github.com/teguh2522009-hub/Benihcandi/internal/repository"
	apperrors "github.com/teguh2522009-hub/Benihcandi/pkg/errors"
)

// Upper bounds on cart contents to keep a single stored blob small.
const (
	// MaxQuantityPerItem is the maximum quantity for a single line item.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct line items.
	MaxItemsPerCart = 50
)

// AddItemInput holds the parameters for adding a product to the cart.
// ID and Image are optional; a zero Qty defaults to 1.
type AddItemInput struct {
	ID    string
	Name  string
	Price int64
	Qty   int
	Image string
}

// CartService implements the cart operations. Every mutation is
// load-mutate-save against the repository; no cart instance is cached
// across calls. Two concurrent mutations for one session race
// last-write-wins on the whole cart, exactly like two browser tabs against
// shared local storage.
type CartService struct {
	repo   repository.CartRepository
	badges *badge.Hub
	events event.Publisher
	logger *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(repo repository.CartRepository, badges *badge.Hub, events event.Publisher, logger *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		badges: badges,
		events: events,
		logger: logger,
	}
}

// Get returns the current cart for a session; empty if nothing is stored.
func (s *CartService) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds a product to the session's cart. An addition matching an
// existing line item by identity key merges into it by incrementing the
// quantity; otherwise a new line item is appended.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Qty < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if input.Qty == 0 {
		input.Qty = 1
	}
	if input.Qty > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	key := domain.ResolveKey(input.ID, input.Name)
	if idx := cart.FindIndex(key); idx >= 0 {
		newQty := cart.Items[idx].Qty + input.Qty
		if newQty > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
		cart.Items[idx].Qty = newQty
	} else {
		if len(cart.Items) >= MaxItemsPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not hold more than %d distinct items", MaxItemsPerCart))
		}
		cart.Items = append(cart.Items, domain.LineItem{
			ID:    input.ID,
			Name:  input.Name,
			Price: input.Price,
			Qty:   input.Qty,
			Image: input.Image,
		})
	}

	if err := s.commit(ctx, sessionID, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("key", key.String()),
		slog.Int("qty", input.Qty),
	)
	return cart, nil
}

// UpdateQuantity sets the quantity of the item at the given position.
// A quantity below 1 is rejected without touching stored state, as is an
// index that addresses no item.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, index, qty int) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if qty < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if qty > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !cart.InRange(index) {
		return nil, apperrors.OutOfRange(index, len(cart.Items))
	}

	cart.Items[index].Qty = qty

	if err := s.commit(ctx, sessionID, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart quantity updated",
		slog.String("session_id", sessionID),
		slog.Int("index", index),
		slog.Int("qty", qty),
	)
	return cart, nil
}

// RemoveItem deletes the item at the given position, shifting later items
// left. The removed item is returned for notification use.
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, index int) (domain.LineItem, *domain.Cart, error) {
	if sessionID == "" {
		return domain.LineItem{}, nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return domain.LineItem{}, nil, fmt.Errorf("load cart: %w", err)
	}
	if !cart.InRange(index) {
		return domain.LineItem{}, nil, apperrors.OutOfRange(index, len(cart.Items))
	}

	removed := cart.Items[index]
	cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)

	if err := s.commit(ctx, sessionID, cart); err != nil {
		return domain.LineItem{}, nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("name", removed.Name),
	)
	return removed, cart, nil
}

// Clear replaces the session's cart with an empty one. The empty cart is
// persisted rather than the key deleted, so a later load still finds a
// well-formed item list.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	cart := domain.NewCart()
	if err := s.repo.Save(ctx, sessionID, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.badges.Publish(sessionID, 0)

	if err := s.events.CartCleared(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)
	return nil
}

// Checkout validates that the cart has items and returns its snapshot.
// There is no real payment flow behind this; the snapshot is what a payment
// integration would receive.
func (s *CartService) Checkout(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	totals := cart.Totals()
	s.logger.InfoContext(ctx, "checkout requested",
		slog.String("session_id", sessionID),
		slog.Int("items", len(cart.Items)),
		slog.Int64("total", totals.Total),
	)
	return cart, nil
}

// commit persists the cart and performs the post-save side effects: badge
// indicators get the new count, and the cart.updated event goes out
// best-effort.
func (s *CartService) commit(ctx context.Context, sessionID string, cart *domain.Cart) error {
	if err := s.repo.Save(ctx, sessionID, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	s.badges.Publish(sessionID, cart.Totals().Count)

	if err := s.events.CartUpdated(ctx, sessionID, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
