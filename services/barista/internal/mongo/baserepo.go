package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	stationsCollection      = "stations"
	ordersCollection        = "orders"
	countersCollection      = "counters"
	preferencesCollection   = "preferences"
	conversationsCollection = "conversations"
)

type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	connString := r.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := r.config.GetStringOrDef("db.mongo.name", "barista")

	clientOptions := options.Client().ApplyURI(connString).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	if err := r.ensureIndexes(ctx); err != nil {
		return err
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s", connString, dbName)
	return nil
}

func (r *BaseRepo) ensureIndexes(ctx context.Context) error {
	orders := r.db.Collection(ordersCollection)

	numberIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := orders.Indexes().CreateOne(ctx, numberIndex); err != nil {
		return fmt.Errorf("cannot create number index: %w", err)
	}

	pendingIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
	}
	if _, err := orders.Indexes().CreateOne(ctx, pendingIndex); err != nil {
		return fmt.Errorf("cannot create status index: %w", err)
	}

	stationIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "station_id", Value: 1}},
	}
	if _, err := orders.Indexes().CreateOne(ctx, stationIndex); err != nil {
		return fmt.Errorf("cannot create station_id index: %w", err)
	}

	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *BaseRepo) GetClient() *mongo.Client {
	return r.client
}
