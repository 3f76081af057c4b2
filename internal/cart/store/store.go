package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	catalog "github.com/Ahmedbennaya/fini-storefront/internal/catalog/domain"

	"github.com/Ahmedbennaya/fini-storefront/internal/cart/cache"
	"github.com/Ahmedbennaya/fini-storefront/internal/cart/domain"
	"github.com/Ahmedbennaya/fini-storefront/internal/cart/repository"
	"golang.org/x/sync/singleflight"
)

// ProductCatalog is the slice of the catalog the cart needs: name, price
// and stock for a single product at the moment a line is added or refreshed.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// Store owns the authoritative per-user cart state. Every mutation
// clamps quantities against the stock ceiling, rewrites the whole cart to
// the durable repository and invalidates the cache entry.
type Store struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog ProductCatalog
	sfg     singleflight.Group // prevents cache stampede
}

func NewStore(repo repository.CartRepository, cache cache.CartCache, catalog ProductCatalog) *Store {
	return &Store{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
	}
}

// Get returns the user's cart, reading through the cache. A missing or
// corrupt stored snapshot yields an empty cart, never an error: the cart
// must not block the shopper because of bad persisted state.
func (s *Store) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrCartNotFound) {
				return emptyCart(userID), nil
			}
			if errors.Is(errGet, repository.ErrCartCorrupt) {
				slog.ErrorContext(ctx, "cart snapshot corrupt, resetting", "user_id", userID, "error", errGet)
				if errDel := s.repo.DeleteCart(ctx, userID); errDel != nil {
					slog.ErrorContext(ctx, "failed to drop corrupt cart snapshot", "user_id", userID, "error", errDel)
				}
				return emptyCart(userID), nil
			}
			return nil, errGet
		}

		// The fill must complete before Get returns: a fill that lands after
		// a later mutation's invalidate would resurrect the pre-mutation
		// cart, and mutations read through this cache.
		if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
			slog.WarnContext(ctx, "cart cache set failed", "user_id", userID, "error", errSet)
		}

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of the product into the cart. Quantities
// below one are a no-op. If the line already exists the quantities are
// merged. The resulting quantity is clamped to the product's stock and a
// clamp produces a notice, not an error.
func (s *Store) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, *Notice, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if quantity < 1 {
		return cart, nil, nil
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	if product.Stock < 1 {
		return cart, &Notice{Kind: NoticeOutOfStock, ProductName: product.Name}, nil
	}

	var notice *Notice
	if line := cart.Find(productID); line != nil {
		wanted := line.Quantity + quantity
		line.Quantity = wanted
		line.StockCeiling = product.Stock
		if wanted > product.Stock {
			line.Quantity = product.Stock
			notice = &Notice{Kind: NoticeStockClamped, ProductName: product.Name, StockCeiling: product.Stock}
		}
	} else {
		clamped := quantity
		if clamped > product.Stock {
			clamped = product.Stock
			notice = &Notice{Kind: NoticeStockClamped, ProductName: product.Name, StockCeiling: product.Stock}
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:    product.ID,
			Name:         product.Name,
			UnitPrice:    product.EffectivePrice(),
			ImageRef:     product.ImageURL,
			Quantity:     clamped,
			StockCeiling: product.Stock,
			AddedAt:      time.Now(),
		})
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, nil, err
	}
	return cart, notice, nil
}

// UpdateQuantity sets the line's quantity. Zero or negative quantities
// remove the line, quantities above the stock ceiling are clamped.
func (s *Store) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, *Notice, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	line := cart.Find(productID)
	if line == nil {
		return cart, nil, nil
	}

	var notice *Notice
	line.Quantity = quantity
	if quantity > line.StockCeiling {
		line.Quantity = line.StockCeiling
		notice = &Notice{Kind: NoticeStockClamped, ProductName: line.Name, StockCeiling: line.StockCeiling}
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, nil, err
	}
	return cart, notice, nil
}

// RemoveItem drops the line if present. Removing an absent product is a
// no-op, not an error.
func (s *Store) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, *Notice, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	removed, found := cart.Remove(productID)
	if !found {
		return cart, nil, nil
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, nil, err
	}
	return cart, &Notice{Kind: NoticeItemRemoved, ProductName: removed.Name}, nil
}

// Clear empties the cart unconditionally. Clearing an empty cart is fine.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// IsInCart reports membership without side effects.
func (s *Store) IsInCart(ctx context.Context, userID string, productID int64) (bool, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return cart.Find(productID) != nil, nil
}

// ReconcileStock refreshes every line's stock ceiling against the live
// catalog, clamping quantities that now exceed stock and dropping lines
// whose product sold out or disappeared. The adjusted cart is persisted
// when anything changed. Checkout calls this right before creating the
// order so stale add-time snapshots cannot oversell.
func (s *Store) ReconcileStock(ctx context.Context, userID string) (*domain.Cart, []Notice, bool, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, nil, false, err
	}

	var notices []Notice
	changed := false
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
			return nil, nil, false, err
		}
		if product == nil || product.Stock < 1 {
			notices = append(notices, Notice{Kind: NoticeOutOfStock, ProductName: line.Name})
			changed = true
			continue
		}
		if line.Quantity > product.Stock {
			line.Quantity = product.Stock
			notices = append(notices, Notice{Kind: NoticeStockClamped, ProductName: line.Name, StockCeiling: product.Stock})
			changed = true
		}
		line.StockCeiling = product.Stock
		kept = append(kept, line)
	}
	cart.Lines = kept

	if changed {
		if err := s.persist(ctx, cart); err != nil {
			return nil, nil, false, err
		}
	}
	return cart, notices, changed, nil
}

func (s *Store) persist(ctx context.Context, cart *domain.Cart) error {
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		slog.ErrorContext(ctx, "cart upsert failed", "user_id", cart.UserID, "error", err)
		return err
	}
	s.invalidate(cart.UserID)
	return nil
}

func (s *Store) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
}

func emptyCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		UserID:    userID,
		Lines:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
