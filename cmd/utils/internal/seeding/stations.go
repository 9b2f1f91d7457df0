package seeding

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Station status codes (duplicated from stationstatus package to avoid coupling)
const (
	StatusActive = "active"

	FallbackStationID = 99
)

type dimension struct {
	AcceptAll bool     `bson:"accept_all"`
	Values    []string `bson:"values,omitempty"`
}

func only(values ...string) dimension {
	return dimension{Values: values}
}

func anyValue() dimension {
	return dimension{AcceptAll: true}
}

type stationDoc struct {
	ID           int                  `bson:"_id"`
	Name         string               `bson:"name"`
	Status       string               `bson:"status"`
	Capabilities map[string]dimension `bson:"capabilities"`
	CurrentLoad  int                  `bson:"current_load"`
	Fallback     bool                 `bson:"fallback"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func defaultStations() []stationDoc {
	caps := func(drinks, milks, sizes dimension) map[string]dimension {
		return map[string]dimension{"drinks": drinks, "milks": milks, "sizes": sizes}
	}
	return []stationDoc{
		{
			ID:   1,
			Name: "Espresso Bar",
			Capabilities: caps(
				only("espresso", "americano", "cappuccino", "latte", "flat white", "cortado", "mocha"),
				only("none", "whole", "skim", "oat", "almond"),
				only("small", "medium", "large"),
			),
		},
		{
			ID:           2,
			Name:         "Brew Station",
			Capabilities: caps(only("drip coffee", "cold brew", "americano"), anyValue(), anyValue()),
		},
		{
			ID:   3,
			Name: "Tea Corner",
			Capabilities: caps(
				only("chai latte", "matcha latte", "tea"),
				only("none", "whole", "oat"),
				only("small", "medium"),
			),
		},
		{
			ID:           FallbackStationID,
			Name:         "Fallback Counter",
			Capabilities: caps(anyValue(), anyValue(), anyValue()),
			Fallback:     true,
		},
	}
}

// SeedStations inserts the default stations that do not exist yet. Existing
// stations keep their status and load.
func SeedStations(ctx context.Context, db *mongo.Database) (int, error) {
	collection := db.Collection("stations")
	now := time.Now()

	created := 0
	for _, st := range defaultStations() {
		st.Status = StatusActive
		st.CreatedAt = now
		st.UpdatedAt = now

		count, err := collection.CountDocuments(ctx, bson.M{"_id": st.ID})
		if err != nil {
			return created, fmt.Errorf("cannot check station %d: %w", st.ID, err)
		}
		if count > 0 {
			continue
		}

		if _, err := collection.InsertOne(ctx, st); err != nil {
			return created, fmt.Errorf("cannot seed station %s: %w", st.Name, err)
		}
		created++
	}
	return created, nil
}
