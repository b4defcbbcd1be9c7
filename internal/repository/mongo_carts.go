package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitwear/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddItem merges on the (product_id, size) key. The merge and the append each
// run as a single server-side update whose filter asserts the state it relies
// on, so concurrent adds settle into one line per key instead of duplicating
// or clobbering each other.
func (m *mongoCartRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	item.AddedAt = time.Now()

	itemKey := bson.M{"product_id": item.ProductID, "size": item.Size}

	// A racing add can create the line (or the whole cart) between the merge
	// attempt and the guarded push; both races surface as a no-op or a
	// duplicate-key insert, and the next merge pass picks the line up.
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now()

		mergeFilter := bson.M{
			"user_id": userID,
			"items":   bson.M{"$elemMatch": itemKey},
		}
		merge := bson.M{
			"$inc": bson.M{"items.$[elem].quantity": item.Quantity},
			"$set": bson.M{"updated_at": now},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.product_id": item.ProductID, "elem.size": item.Size},
			},
		})

		result, err := m.collection.UpdateOne(ctx, mergeFilter, merge, arrayFilters)
		if err != nil {
			return fmt.Errorf("failed to merge existing item: %w", err)
		}
		if result.MatchedCount > 0 {
			return nil
		}

		// No line with this key yet. The filter guards the append so a racing
		// add of the same key cannot produce a second line; the upsert covers
		// the user's first-ever cart write.
		pushFilter := bson.M{
			"user_id": userID,
			"items":   bson.M{"$not": bson.M{"$elemMatch": itemKey}},
		}
		push := bson.M{
			"$push":        bson.M{"items": item},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}

		result, err = m.collection.UpdateOne(ctx, pushFilter, push, options.Update().SetUpsert(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("failed to add new item: %w", err)
		}
		if result.MatchedCount > 0 || result.UpsertedCount > 0 {
			return nil
		}
	}

	return fmt.Errorf("failed to add item to cart for user %s: retries exhausted", userID)
}

func (m *mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID, productID string, size domain.Size, quantity int) error {
	filter := bson.M{
		"user_id": userID,
		"items": bson.M{
			"$elemMatch": bson.M{"product_id": productID, "size": size},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}

	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID, "elem.size": size},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveItem pulls only the line matching the full (product_id, size) key, so
// other sizes of the same product stay in the cart.
func (m *mongoCartRepository) RemoveItem(ctx context.Context, userID, productID string, size domain.Size) error {
	filter := bson.M{
		"user_id": userID,
		"items": bson.M{
			"$elemMatch": bson.M{"product_id": productID, "size": size},
		},
	}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": productID, "size": size},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}

	return nil
}

// ClearCart empties the item list rather than deleting the document, so a
// user's cart aggregate survives checkout with its created_at intact.
func (m *mongoCartRepository) ClearCart(ctx context.Context, userID string) error {
	now := time.Now()
	filter := bson.M{"user_id": userID}
	// user_id comes from the filter's equality match on insert; listing it
	// under $setOnInsert as well would conflict with that path.
	update := bson.M{
		"$set":         bson.M{"items": []domain.CartItem{}, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
