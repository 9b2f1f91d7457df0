package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/barista/services/barista/internal/order"
)

type preferenceDoc struct {
	CustomerID   string             `bson:"_id"`
	Requirements order.Requirements `bson:"requirements"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// PreferenceRepo stores the last order each customer placed for themselves.
type PreferenceRepo struct {
	collection *mongo.Collection
}

func NewPreferenceRepo(db *mongo.Database) *PreferenceRepo {
	return &PreferenceRepo{
		collection: db.Collection(preferencesCollection),
	}
}

func (r *PreferenceRepo) SavePreference(ctx context.Context, customerID string, req order.Requirements) error {
	doc := preferenceDoc{CustomerID: customerID, Requirements: req, UpdatedAt: time.Now()}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": customerID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot save preference: %w", err)
	}
	return nil
}

func (r *PreferenceRepo) GetPreference(ctx context.Context, customerID string) (*order.Requirements, error) {
	var doc preferenceDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": customerID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get preference: %w", err)
	}
	return &doc.Requirements, nil
}
