package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/barista/services/barista/internal/station"
)

type StationRepo struct {
	collection *mongo.Collection
}

func NewStationRepo(db *mongo.Database) *StationRepo {
	return &StationRepo{
		collection: db.Collection(stationsCollection),
	}
}

func (r *StationRepo) ListStations(ctx context.Context) ([]station.Station, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list stations: %w", err)
	}
	defer cursor.Close(ctx)

	var result []station.Station
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode stations: %w", err)
	}
	return result, nil
}

func (r *StationRepo) GetStation(ctx context.Context, id int) (*station.Station, error) {
	var st station.Station
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, station.ErrNotFound
		}
		return nil, fmt.Errorf("cannot get station: %w", err)
	}
	return &st, nil
}

func (r *StationRepo) SaveStation(ctx context.Context, st *station.Station) error {
	if st == nil {
		return fmt.Errorf("station is nil")
	}

	st.UpdatedAt = time.Now()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = st.UpdatedAt
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": st.ID}, st, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot save station: %w", err)
	}
	return nil
}

func (r *StationRepo) UpdateStationStatus(ctx context.Context, id int, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot update station status: %w", err)
	}
	if result.MatchedCount == 0 {
		return station.ErrNotFound
	}
	return nil
}

func (r *StationRepo) IncrementLoad(ctx context.Context, id int) error {
	return incrementLoad(ctx, r.collection, id)
}

// DecrementLoad only matches stations with positive load, so the counter is
// clamped at zero without a read-modify-write.
func (r *StationRepo) DecrementLoad(ctx context.Context, id int) error {
	return decrementLoad(ctx, r.collection, id)
}

func incrementLoad(ctx context.Context, coll *mongo.Collection, id int) error {
	update := bson.M{"$inc": bson.M{"current_load": 1}}
	result, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot increment station load: %w", err)
	}
	if result.MatchedCount == 0 {
		return station.ErrNotFound
	}
	return nil
}

func decrementLoad(ctx context.Context, coll *mongo.Collection, id int) error {
	filter := bson.M{"_id": id, "current_load": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"current_load": -1}}
	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot decrement station load: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot check station: %w", err)
	}
	if count == 0 {
		return station.ErrNotFound
	}
	return nil
}
