package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartItem is one (product, size) line in a cart. The repository guarantees
// at most one item per (ProductID, Size) pair; adding the same pair again
// increments Quantity instead of appending a row.
type CartItem struct {
	ProductID string    `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Size      Size      `bson:"size" json:"size"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// ResolvedCart is the cart as rendered to a client: every line carries a
// snapshot of its product's current name, image, price and stock. Prices here
// are live and non-binding; they are frozen only at checkout.
type ResolvedCart struct {
	UserID    string         `json:"user_id"`
	Items     []ResolvedItem `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ResolvedItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Quantity    int     `json:"quantity"`
	Size        Size    `json:"size"`
}

// FindItem returns the index of the item matching the full (product, size)
// key, or -1 when no such line exists.
func (c *Cart) FindItem(productID string, size Size) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.Size == size {
			return i
		}
	}
	return -1
}
