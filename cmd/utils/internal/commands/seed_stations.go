package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/appetiteclub/barista/cmd/utils/internal/seeding"
)

const stationSeedID = "utils_default_stations_v1"

// SeedStations creates the default stations, including the fallback counter.
func SeedStations(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(databaseName(config))

	created, err := seeding.SeedStations(ctx, db)
	if err != nil {
		return fmt.Errorf("seed stations: %w", err)
	}
	logger.Info("Stations seeded", "created", created)

	_, err = db.Collection("_seeds").UpdateOne(ctx,
		bson.M{"_id": stationSeedID},
		bson.M{
			"$set":         bson.M{"description": "Create the default preparation stations and the fallback counter"},
			"$currentDate": bson.M{"applied_at": true},
		},
		upsert(),
	)
	if err != nil {
		logger.Infof("⚠️  Failed to mark seed as applied: %v", err)
	}

	return nil
}
