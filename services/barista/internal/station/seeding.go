package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/barista/pkg/enums/stationstatus"
)

const (
	stationSeedApplication = "barista_stations"
	// FallbackStationID is the id given to the seeded fallback station.
	FallbackStationID = 99
)

// DefaultStations is the station layout applied on a fresh deployment.
func DefaultStations() []Station {
	active := stationstatus.Statuses.Active.Code()
	return []Station{
		{
			ID:     1,
			Name:   "Espresso Bar",
			Status: active,
			Capabilities: Capabilities{
				Drinks: Only("espresso", "americano", "cappuccino", "latte", "flat white", "cortado", "mocha"),
				Milks:  Only("none", "whole", "skim", "oat", "almond"),
				Sizes:  Only("small", "medium", "large"),
			},
		},
		{
			ID:     2,
			Name:   "Brew Station",
			Status: active,
			Capabilities: Capabilities{
				Drinks: Only("drip coffee", "cold brew", "americano"),
				Milks:  AnyValue(),
				Sizes:  AnyValue(),
			},
		},
		{
			ID:     3,
			Name:   "Tea Corner",
			Status: active,
			Capabilities: Capabilities{
				Drinks: Only("chai latte", "matcha latte", "tea"),
				Milks:  Only("none", "whole", "oat"),
				Sizes:  Only("small", "medium"),
			},
		},
		{
			ID:           FallbackStationID,
			Name:         "Fallback Counter",
			Status:       active,
			Capabilities: AcceptAnything(),
			Fallback:     true,
		},
	}
}

// Seeds returns the station seeds. Existing stations are left untouched so
// live load counters survive restarts.
func Seeds(repo Repo) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2025-01-10_default_stations_v1",
			Description: "Create the default preparation stations and the fallback counter",
			Run: func(ctx context.Context) error {
				return seedStations(ctx, repo, DefaultStations())
			},
		},
	}
}

func seedStations(ctx context.Context, repo Repo, stations []Station) error {
	for i := range stations {
		st := stations[i]
		existing, err := repo.GetStation(ctx, st.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("cannot check station %d: %w", st.ID, err)
		}
		if existing != nil {
			continue
		}

		now := time.Now()
		st.CreatedAt = now
		st.UpdatedAt = now
		if err := repo.SaveStation(ctx, &st); err != nil {
			return fmt.Errorf("cannot seed station %s: %w", st.Name, err)
		}
	}
	return nil
}

// ApplySeeds applies station seeds, tracked in db when available.
func ApplySeeds(ctx context.Context, repo Repo, db *mongo.Database, logger apt.Logger) error {
	if repo == nil {
		return errors.New("station repository is required for seeding")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	if db == nil {
		logger.Info("Seeding stations without tracker")
		return seedStations(ctx, repo, DefaultStations())
	}

	tracker := seed.NewMongoTracker(db)
	logger.Info("Applying station seeds")
	if err := seed.Apply(ctx, tracker, Seeds(repo), stationSeedApplication); err != nil {
		return fmt.Errorf("station seed failed: %w", err)
	}
	logger.Info("Station seeds applied successfully")
	return nil
}
