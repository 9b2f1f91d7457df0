package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/barista/pkg/enums/orderstatus"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/order"
)

// AssignmentStore performs the order/station writes that must land together.
// With transactions disabled (standalone server) the writes run in order,
// the conditional order update first so a conflict leaves counters intact.
type AssignmentStore struct {
	client       *mongo.Client
	orders       *mongo.Collection
	stations     *mongo.Collection
	transactions bool
	logger       apt.Logger
}

func NewAssignmentStore(client *mongo.Client, db *mongo.Database, transactions bool, logger apt.Logger) *AssignmentStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &AssignmentStore{
		client:       client,
		orders:       db.Collection(ordersCollection),
		stations:     db.Collection(stationsCollection),
		transactions: transactions,
		logger:       logger,
	}
}

func (s *AssignmentStore) MoveOrder(ctx context.Context, orderID uuid.UUID, fromStationID, toStationID int) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		filter := bson.M{
			"_id":        orderID,
			"status":     orderstatus.Statuses.Pending.Code(),
			"station_id": fromStationID,
		}
		update := bson.M{"$set": bson.M{"station_id": toStationID, "updated_at": time.Now()}}

		result, err := s.orders.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("cannot move order: %w", err)
		}
		if result.MatchedCount == 0 {
			return assignment.ErrAssignmentConflict
		}

		if err := decrementLoad(ctx, s.stations, fromStationID); err != nil && !isNotFound(err) {
			return err
		}

		return incrementLoad(ctx, s.stations, toStationID)
	})
}

// TransitionOrder releases the station recorded on the order document at
// update time. Once the status leaves pending no move can match the order,
// so that station is the one holding the load.
func (s *AssignmentStore) TransitionOrder(ctx context.Context, t assignment.Transition) (int, error) {
	var stationID int
	err := s.withTransaction(ctx, func(ctx context.Context) error {
		filter := bson.M{"_id": t.OrderID, "status": t.FromStatus}
		update := bson.M{"$set": bson.M{"status": t.ToStatus, "updated_at": time.Now()}}
		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{"station_id": 1})

		var before order.Order
		err := s.orders.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
		if err == mongo.ErrNoDocuments {
			return assignment.ErrAssignmentConflict
		}
		if err != nil {
			return fmt.Errorf("cannot transition order: %w", err)
		}
		stationID = before.StationID

		if !t.Release {
			return nil
		}
		if err := decrementLoad(ctx, s.stations, stationID); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})
	return stationID, err
}

func (s *AssignmentStore) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || s.client == nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
