package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/repository"
	"github.com/google/uuid"
)

// NewOrderLine is one caller-supplied line at checkout. Prices are never
// accepted from the client; the service snapshots them from the catalog.
type NewOrderLine struct {
	ProductID string
	Quantity  int
	Size      domain.Size
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	cart     *CartService
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, cart *CartService) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		cart:     cart,
	}
}

// PlaceOrder converts the supplied lines into an immutable order. Each line's
// price is resolved from the authoritative product record at this moment and
// frozen into the order; the total is the sum of those snapshots. On success
// the user's cart is cleared as part of the same logical operation.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, lines []NewOrderLine, shipping domain.ShippingAddress) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]domain.OrderItem, 0, len(lines))
	var total float64
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if line.Size == "" {
			return nil, ErrSizeRequired
		}
		if !line.Size.Valid() {
			return nil, ErrInvalidSize
		}

		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
			Size:        line.Size,
		})
		total += product.Price * float64(line.Quantity)
	}

	now := time.Now()
	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Shipping:    shipping,
		Status:      domain.OrderStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	// Cart clearing is best-effort after the order persists: a stale cart is
	// recoverable, a lost order is not.
	if err := s.cart.ClearCart(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "failed to clear cart after order",
			"user_id", userID, "order_id", order.ID, "error", err)
	}

	return order, nil
}

// ListUserOrders returns the user's own orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

// ListAllOrders pages through every order, newest first. Page and limit fall
// back to 1 and 10 when out of range.
func (s *OrderService) ListAllOrders(ctx context.Context, page, limit int64) (*domain.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	offset := (page - 1) * limit
	orders, total, err := s.orders.ListOrders(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	if orders == nil {
		orders = []*domain.Order{}
	}

	return &domain.OrderPage{
		Orders:      orders,
		TotalPages:  totalPages,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// GetOrder returns the order if the actor owns it or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	return order, nil
}

// UpdateStatus moves an order through its lifecycle. Unknown statuses and
// transitions outside the allowed table are rejected before touching storage.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, ErrIllegalTransition
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order.Status = status
	return order, nil
}
