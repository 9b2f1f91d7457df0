package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResetDB drops the barista database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	dbName := databaseName(config)
	logger.Infof("⚠️  DANGER: This will drop the %s database!", dbName)
	logger.Infof("⚠️  This action cannot be undone!")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Dropping database", "database", dbName)
	if err := client.Database(dbName).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", dbName, err)
	}

	logger.Info("Database dropped", "database", dbName)
	return nil
}

func upsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
