package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/barista/services/barista/internal/conversation"
)

// ConversationRepo keeps conversation states in MongoDB so several service
// instances share them. Idle states are expired by a TTL index.
type ConversationRepo struct {
	collection *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection(conversationsCollection),
	}
}

// EnsureTTL creates the expiry index on last_interaction.
func (r *ConversationRepo) EnsureTTL(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "last_interaction", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("cannot create conversation ttl index: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Load(ctx context.Context, customerID string) (*conversation.ConversationState, error) {
	var state conversation.ConversationState
	err := r.collection.FindOne(ctx, bson.M{"_id": customerID}).Decode(&state)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot load conversation: %w", err)
	}
	return &state, nil
}

func (r *ConversationRepo) Save(ctx context.Context, state *conversation.ConversationState) error {
	if state == nil {
		return fmt.Errorf("conversation state is nil")
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": state.CustomerID}, state, opts); err != nil {
		return fmt.Errorf("cannot save conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, customerID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": customerID}); err != nil {
		return fmt.Errorf("cannot delete conversation: %w", err)
	}
	return nil
}
