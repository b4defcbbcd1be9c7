package domain

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the order lifecycle: Processing -> Shipped -> Delivered,
// with Cancelled reachable from any non-terminal state. Delivered and Cancelled
// are terminal.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether moving from s to next is a legal status
// change. Setting the same status again is a no-op and always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID          string          `bson:"_id" json:"id"`
	UserID      string          `bson:"user_id" json:"user_id"`
	Items       []OrderItem     `bson:"items" json:"items"`
	TotalAmount float64         `bson:"total_amount" json:"total_amount"`
	Shipping    ShippingAddress `bson:"shipping_address" json:"shipping_address"`
	Status      OrderStatus     `bson:"status" json:"status"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`
}

// OrderItem freezes the product's name and price at checkout time. Price is
// authoritative for the order; it must never be recomputed from the live
// product after creation.
type OrderItem struct {
	ProductID   string  `bson:"product_id" json:"product_id"`
	ProductName string  `bson:"product_name" json:"product_name"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	Price       float64 `bson:"price" json:"price"`
	Size        Size    `bson:"size" json:"size"`
}

type ShippingAddress struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zip_code"`
	Country string `bson:"country" json:"country"`
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders      []*Order `json:"orders"`
	TotalPages  int64    `json:"totalPages"`
	CurrentPage int64    `json:"currentPage"`
	Total       int64    `json:"total"`
}
