package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fitwear/storefront/internal/cache"
	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CartService keeps the one-line-item-per-(product,size) invariant and serves
// resolved carts. Raw carts are cached in Redis and invalidated on every
// write; product snapshots are always read live.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
	}
}

// GetCart returns the user's cart with every line resolved against the live
// product catalog. A user with no cart document gets an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.ResolvedCart, error) {
	cart, err := s.getRawCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

func (s *CartService) getRawCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cart cache get failed", "error", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.Cart{
				UserID:    userID,
				Items:     []domain.CartItem{},
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// Detached repopulation can land after a concurrent write's
		// invalidation, pinning the pre-write cart until the TTL expires.
		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				slog.Warn("cart cache set failed", "error", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// resolve joins cart lines with their current product records. Lines whose
// product has disappeared from the catalog are omitted from the view.
func (s *CartService) resolve(ctx context.Context, cart *domain.Cart) (*domain.ResolvedCart, error) {
	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	resolved := &domain.ResolvedCart{
		UserID:    cart.UserID,
		Items:     make([]domain.ResolvedItem, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok {
			slog.WarnContext(ctx, "cart references missing product",
				"user_id", cart.UserID, "product_id", item.ProductID)
			continue
		}
		resolved.Items = append(resolved.Items, domain.ResolvedItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			ImageURL:    p.ImageURL,
			Price:       p.Price,
			Stock:       p.Stock,
			Quantity:    item.Quantity,
			Size:        item.Size,
		})
	}

	return resolved, nil
}

// AddItem validates the request, verifies the product exists, and merges the
// line into the cart. Adding the same (product, size) twice sums quantities.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int, size domain.Size) (*domain.ResolvedCart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if size == "" {
		return nil, ErrSizeRequired
	}
	if !size.Valid() {
		return nil, ErrInvalidSize
	}

	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	item := domain.CartItem{
		ProductID: productID,
		Quantity:  quantity,
		Size:      size,
	}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return s.GetCart(ctx, userID)
}

// UpdateQuantity overwrites the quantity of the exact (product, size) line.
// Quantity is not checked against stock; over-selling is resolved at
// fulfilment time.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, size domain.Size, quantity int) (*domain.ResolvedCart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if size == "" {
		return nil, ErrSizeRequired
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, productID, size, quantity); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes the line matching the full (product, size) key. Other
// sizes of the same product are left alone.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string, size domain.Size) (*domain.ResolvedCart, error) {
	if size == "" {
		return nil, ErrSizeRequired
	}

	if err := s.repo.RemoveItem(ctx, userID, productID, size); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
