package repository

import (
	"context"
	"errors"

	"github.com/Ahmedbennaya/fini-storefront/internal/cart/domain"
)

var (
	// ErrCartNotFound means the user has no stored cart yet.
	ErrCartNotFound = errors.New("cart not found")

	// ErrCartCorrupt means a stored snapshot exists but cannot be decoded.
	// Callers treat it like a missing cart rather than failing the request.
	ErrCartCorrupt = errors.New("stored cart snapshot is corrupt")
)

// CartRepository is the durable store for full cart snapshots. Every
// mutation rewrites the whole cart, so the contract is get/upsert/delete
// rather than per-item updates.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}
