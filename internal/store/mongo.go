package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// MongoActivity records character mutations in the activity collection.
type MongoActivity struct {
	col *mongo.Collection
}

func NewMongoActivity(db *mongo.Database) *MongoActivity {
	return &MongoActivity{col: db.Collection("activity")}
}

// EnsureIndexes creates the per-user, newest-first index used by ListByUser.
func (s *MongoActivity) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo activity index: %w", err)
	}
	return nil
}

func (s *MongoActivity) Record(ctx context.Context, a models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

func (s *MongoActivity) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Activity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return out, nil
}
