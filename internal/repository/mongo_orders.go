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

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (m *mongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by user id: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	return orders, nil
}

// ListOrders returns one offset page of all orders, newest first, plus the
// total count for pagination math.
func (m *mongoOrderRepository) ListOrders(ctx context.Context, offset, limit int64) ([]*domain.Order, int64, error) {
	total, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	return orders, total, nil
}

func (m *mongoOrderRepository) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	update := bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}
