package repository

import (
	"context"
	"errors"

	"github.com/fitwear/storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// CartRepository owns the per-user cart aggregate. Implementations must keep
// the "one line item per (product, size)" invariant: AddItem merges by
// incrementing quantity when the key already exists.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, productID string, size domain.Size, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string, size domain.Size) error
	ClearCart(ctx context.Context, userID string) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, offset, limit int64) ([]*domain.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
