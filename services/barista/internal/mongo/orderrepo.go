package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/barista/pkg/enums/orderstatus"
	"github.com/appetiteclub/barista/services/barista/internal/order"
)

type OrderRepo struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
		counters:   db.Collection(countersCollection),
	}
}

func (r *OrderRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) UpdateOrderStation(ctx context.Context, id uuid.UUID, stationID int) error {
	update := bson.M{"$set": bson.M{"station_id": stationID, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot update order station: %w", err)
	}
	if result.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) QueryPendingOlderThan(ctx context.Context, age time.Duration, now time.Time) ([]*order.Order, error) {
	filter := bson.M{
		"status":     orderstatus.Statuses.Pending.Code(),
		"created_at": bson.M{"$lt": now.Add(-age)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot query pending orders: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*order.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}
	return result, nil
}

// NextOrderNumber increments the orders counter document.
func (r *OrderRepo) NextOrderNumber(ctx context.Context) (string, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": ordersCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("cannot allocate order number: %w", err)
	}

	return order.FormatNumber(counter.Seq), nil
}
